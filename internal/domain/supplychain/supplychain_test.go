package supplychain

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCheck(t *testing.T) {
	Convey("Given submitted components", t, func() {
		Convey("When a vulnerable package is listed in any case", func() {
			res := Check([]Component{{"name": "PyYAML", "version": "5.1"}, {"name": "pillow"}})

			Convey("Then each is a blocking issue", func() {
				So(res.Issues, ShouldResemble, []string{
					"Package pyyaml flagged for vulnerabilities",
					"Package pillow flagged for vulnerabilities",
				})
				So(res.Passed(), ShouldBeFalse)
			})
		})

		Convey("When a component runs as root", func() {
			byUser := Check([]Component{{"name": "app", "user": "root"}})
			byName := Check([]Component{{"name": "root"}})

			Convey("Then the root rule fires", func() {
				So(byUser.Issues, ShouldResemble, []string{"Container must not run as root"})
				So(byName.Issues, ShouldResemble, []string{"Container must not run as root"})
			})
		})

		Convey("When uvicorn is old", func() {
			old := Check([]Component{{"name": "uvicorn", "version": "0.15.0"}})
			current := Check([]Component{{"name": "uvicorn", "version": "0.30.1"}})

			Convey("Then only a warning is raised", func() {
				So(old.Warnings, ShouldResemble, []string{"Outdated uvicorn version detected"})
				So(old.Passed(), ShouldBeTrue)
				So(current.Warnings, ShouldBeEmpty)
			})
		})

		Convey("When nothing is submitted", func() {
			res := Check(nil)

			Convey("Then both lists are empty but not nil", func() {
				So(res.Issues, ShouldNotBeNil)
				So(res.Warnings, ShouldNotBeNil)
				So(res.Passed(), ShouldBeTrue)
			})
		})
	})
}

func TestNewSBOM(t *testing.T) {
	Convey("Given components to describe", t, func() {
		bom := NewSBOM("1767225600", []Component{{"name": "fastapi", "version": "0.110", "purl": "pkg:pypi/fastapi@0.110"}})
		out, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(bom)

		Convey("Then the CycloneDX header and components are encoded", func() {
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, `{"bomFormat":"CycloneDX","specVersion":"1.5","version":1,`+
				`"metadata":{"component":{"name":"mlgate","version":"1767225600"}},`+
				`"components":[{"name":"fastapi","purl":"pkg:pypi/fastapi@0.110","version":"0.110"}]}`)
		})

		Convey("And a nil component list encodes as an empty array", func() {
			So(NewSBOM("x", nil).Components, ShouldNotBeNil)
		})
	})
}
