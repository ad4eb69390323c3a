package signing

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSigner(t *testing.T) {
	Convey("Given a signer with the default key", t, func() {
		s := New("")

		Convey("When signing a blob", func() {
			sig := s.Sign([]byte("abc"))

			Convey("Then it should equal sha256 over key and content", func() {
				So(sig, ShouldEqual, Fingerprint([]byte(DefaultKey+"abc")))
				So(len(sig), ShouldEqual, 64)
			})

			Convey("And it should verify against the same content only", func() {
				So(s.Verify([]byte("abc"), sig), ShouldBeTrue)
				So(s.Verify([]byte("abd"), sig), ShouldBeFalse)
			})

			Convey("And a signer with another key should reject it", func() {
				So(New("other").Verify([]byte("abc"), sig), ShouldBeFalse)
			})
		})
	})
}

func TestSignerFiles(t *testing.T) {
	Convey("Given an artifact on disk", t, func() {
		s := New("k")
		path := filepath.Join(t.TempDir(), "model.bin")
		So(os.WriteFile(path, []byte("weights-v1"), 0o600), ShouldBeNil)

		sig, err := s.SignFile(path)
		So(err, ShouldBeNil)

		Convey("Then the signature covers the file digest", func() {
			So(sig, ShouldEqual, s.Sign([]byte(Fingerprint([]byte("weights-v1")))))
		})

		Convey("When the file is unchanged", func() {
			ok, err := s.VerifyFile(path, sig)

			Convey("Then verification should pass", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the file is tampered with", func() {
			So(os.WriteFile(path, []byte("weights-v2"), 0o600), ShouldBeNil)
			ok, err := s.VerifyFile(path, sig)

			Convey("Then verification should fail", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the file is missing", func() {
			_, err := s.VerifyFile(filepath.Join(t.TempDir(), "missing.bin"), sig)

			Convey("Then an error should be returned", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
