package submission_test

import (
	"testing"
	"time"

	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/internal/domain/submission"
	"github.com/okian/scorekeep/internal/identity"
	. "github.com/smartystreets/goconvey/convey"
)

func TestValidate(t *testing.T) {
	Convey("Given a validator with a fixed clock", t, func() {
		clock := func() time.Time { return time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC) }
		v := submission.NewValidator(submission.WithClock(clock))
		owner := identity.New("u1")
		game := &model.GameCatalogEntry{ID: "7", Title: "Hollow Knight", ImageURI: "https://img/hk.png"}

		Convey("When no game is selected", func() {
			_, err := v.Validate(submission.Candidate{Score: "abc"}, owner)

			Convey("Then selection is reported regardless of score validity", func() {
				So(err, ShouldEqual, submission.ErrMissingSelection)
				So(submission.IsValidation(err), ShouldBeTrue)
			})
		})

		Convey("When the selected game has a blank title", func() {
			_, err := v.Validate(submission.Candidate{Selection: &model.GameCatalogEntry{ID: "1"}, Score: "5"}, owner)
			So(err, ShouldEqual, submission.ErrMissingSelection)
		})

		Convey("When the score is blank", func() {
			_, err := v.Validate(submission.Candidate{Selection: game, Score: "   "}, owner)
			So(err, ShouldEqual, submission.ErrEmptyScore)
		})

		Convey("When the score is not a number", func() {
			for _, raw := range []string{"abc", "12abc", "1.5", "1e3", "+5"} {
				_, err := v.Validate(submission.Candidate{Selection: game, Score: raw}, owner)
				So(err, ShouldEqual, submission.ErrInvalidScoreFormat)
			}
		})

		Convey("When the score is outside the range", func() {
			for _, raw := range []string{"-1", "1000000", "99999999999999999999999"} {
				_, err := v.Validate(submission.Candidate{Selection: game, Score: raw}, owner)
				So(err, ShouldEqual, submission.ErrScoreOutOfRange)
			}
		})

		Convey("When the score is on a boundary", func() {
			for _, raw := range []string{"0", "999999", " 42 "} {
				_, err := v.Validate(submission.Candidate{Selection: game, Score: raw}, owner)
				So(err, ShouldBeNil)
			}
		})

		Convey("When the input is valid but no owner is established", func() {
			_, err := v.Validate(submission.Candidate{Selection: game, Score: "10"}, identity.Identity{})
			So(err, ShouldEqual, identity.ErrNotAuthenticated)
		})

		Convey("When the input is valid", func() {
			p, err := v.Validate(submission.Candidate{Selection: game, Score: "1500", Date: "not a date"}, owner)

			Convey("Then the payload is normalized and the date kept verbatim", func() {
				So(err, ShouldBeNil)
				So(p, ShouldResemble, model.Payload{
					Game:      "Hollow Knight",
					Score:     1500,
					Date:      "not a date",
					UserID:    "u1",
					GameImage: "https://img/hk.png",
				})
			})
		})

		Convey("When the date is empty", func() {
			p, err := v.Validate(submission.Candidate{Selection: game, Score: "1"}, owner)

			Convey("Then today's date is filled in", func() {
				So(err, ShouldBeNil)
				So(p.Date, ShouldEqual, "2024-03-09")
			})
		})
	})
}
