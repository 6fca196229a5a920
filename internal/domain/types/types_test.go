package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/scorekeep/internal/domain/display"
	"github.com/okian/scorekeep/internal/domain/model"
	types "github.com/okian/scorekeep/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSubmitRequest(t *testing.T) {
	Convey("Given a submission body", t, func() {
		var req types.SubmitRequest
		err := json.Unmarshal([]byte(`{"game_id":"7","score":"1500","date":"2024-01-02","IdempotencyKey":"x"}`), &req)

		Convey("Then the fields decode and the idempotency key is not read from the body", func() {
			So(err, ShouldBeNil)
			So(req.GameID, ShouldEqual, "7")
			So(req.Score, ShouldEqual, "1500")
			So(req.Date, ShouldEqual, "2024-01-02")
			So(req.IdempotencyKey, ShouldBeEmpty)
		})
	})
}

func TestScoresView(t *testing.T) {
	Convey("Given a rendered view", t, func() {
		f := display.New("es-ES")
		rec := model.ScoreRecord{ID: "k1", Game: "Zelda", Score: 150000, Date: "2024-01-03", UserID: "u1"}
		view := types.ScoresView{
			Records:    f.Records([]model.ScoreRecord{rec}, 150000),
			Statistics: f.Statistics(model.Statistics{TotalScore: 150000, HighestScore: 150000, AverageScore: 150000, TotalGames: 1, MostPlayedGame: "Zelda"}),
			Version:    3,
			Locale:     f.Locale(),
		}

		Convey("When encoded", func() {
			raw, err := json.Marshal(view)
			So(err, ShouldBeNil)
			body := string(raw)

			Convey("Then record and statistic fields are flattened", func() {
				So(body, ShouldContainSubstring, `"id":"k1"`)
				So(body, ShouldContainSubstring, `"userId":"u1"`)
				So(body, ShouldContainSubstring, `"meter":100`)
				So(body, ShouldContainSubstring, `"displayScore":"150.000"`)
				So(body, ShouldContainSubstring, `"displayDate":"03/01/2024"`)
				So(body, ShouldContainSubstring, `"mostPlayedGame":"Zelda"`)
				So(body, ShouldContainSubstring, `"displayAverage":"150.000"`)
				So(body, ShouldContainSubstring, `"version":3`)
			})
		})
	})
}
