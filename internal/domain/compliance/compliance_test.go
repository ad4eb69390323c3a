package compliance

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRecord(t *testing.T) {
	Convey("Given the framework mapping", t, func() {
		Convey("When recording a NIST event", func() {
			ev := Record(NISTAIRMF, "Training completed")

			Convey("Then the NIST controls are attached", func() {
				So(ev.Domain, ShouldEqual, NISTAIRMF)
				So(ev.Controls, ShouldResemble, []string{"Govern", "Map", "Measure", "Manage"})
				So(ev.Detail, ShouldEqual, "Training completed")
			})
		})

		Convey("When recording an unknown domain", func() {
			ev := Record("SOC2", "n/a")

			Convey("Then no controls are attached", func() {
				So(ev.Controls, ShouldBeEmpty)
				So(ev.Controls, ShouldNotBeNil)
			})
		})

		Convey("When a caller mutates returned controls", func() {
			c := Controls(ACSCE8)
			c[0] = "changed"

			Convey("Then the mapping is unaffected", func() {
				So(Controls(ACSCE8)[0], ShouldEqual, "Application Control")
			})
		})
	})
}
