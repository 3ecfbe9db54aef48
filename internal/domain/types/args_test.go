package types_test

import (
	"errors"
	"testing"

	"github.com/okian/soarbridge/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type historyArgs struct {
	Domain string   `arg:"domain"`
	Timing string   `arg:"timing"`
	Days   int      `arg:"had_breach_within_last_days"`
	Types  []string `arg:"score_types"`
	Force  bool     `arg:"force"`
}

func TestArgsDecode(t *testing.T) {
	Convey("Given host arguments", t, func() {
		args := types.Args{
			"domain":                      "example.com",
			"timing":                      "weekly",
			"had_breach_within_last_days": "30",
			"score_types":                 "overall, network_security,,",
			"force":                       "true",
		}

		Convey("When decoding into a struct", func() {
			var got historyArgs
			err := args.Decode(&got)

			Convey("Then scalars should be weakly typed and lists split", func() {
				So(err, ShouldBeNil)
				So(got.Domain, ShouldEqual, "example.com")
				So(got.Days, ShouldEqual, 30)
				So(got.Force, ShouldBeTrue)
				So(got.Types, ShouldResemble, []string{"overall", "network_security"})
			})
		})

		Convey("When a list arrives as an array", func() {
			var got historyArgs
			err := types.Args{"score_types": []any{"a", "b"}}.Decode(&got)
			So(err, ShouldBeNil)
			So(got.Types, ShouldResemble, []string{"a", "b"})
		})

		Convey("When a number cannot be parsed", func() {
			var got historyArgs
			err := types.Args{"had_breach_within_last_days": "soon"}.Decode(&got)
			So(errors.Is(err, types.ErrInvalidArgument), ShouldBeTrue)
		})
	})
}

func TestArgsAccessors(t *testing.T) {
	Convey("Given host arguments of mixed types", t, func() {
		args := types.Args{"s": "  x ", "n": float64(42), "b": "TRUE", "t": true, "o": []any{1}}

		So(args.String("s"), ShouldEqual, "x")
		So(args.String("n"), ShouldEqual, "42")
		So(args.String("missing"), ShouldEqual, "")
		So(args.Bool("b"), ShouldBeTrue)
		So(args.Bool("t"), ShouldBeTrue)
		So(args.Bool("o"), ShouldBeFalse)

		Convey("Require should name the missing key", func() {
			err := args.Require("s", "domain")
			So(errors.Is(err, types.ErrInvalidArgument), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "domain")
			So(args.Require("s"), ShouldBeNil)
		})

		Convey("SplitList should trim and drop blanks", func() {
			So(types.SplitList(" a ,b,, "), ShouldResemble, []string{"a", "b"})
			So(types.SplitList(""), ShouldBeEmpty)
		})
	})
}
