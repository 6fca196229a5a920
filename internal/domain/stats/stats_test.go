package stats_test

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/internal/domain/stats"
	. "github.com/smartystreets/goconvey/convey"
)

func rec(game string, score int, date string) model.ScoreRecord {
	return model.ScoreRecord{Game: game, Score: score, Date: date, UserID: "u1"}
}

func TestAggregate(t *testing.T) {
	Convey("Given an empty record set", t, func() {
		s := stats.Aggregate(nil)

		Convey("Then every field is the zero value", func() {
			So(s, ShouldResemble, model.Statistics{})
			So(s.MostPlayedGame, ShouldEqual, "")
		})
	})

	Convey("Given three records across two games", t, func() {
		records := []model.ScoreRecord{
			rec("A", 100, "2024-01-01"),
			rec("B", 300, "2024-01-02"),
			rec("A", 200, "2024-01-03"),
		}
		s := stats.Aggregate(records)

		Convey("Then the summary matches the worked example", func() {
			So(s.TotalScore, ShouldEqual, int64(600))
			So(s.HighestScore, ShouldEqual, 300)
			So(s.AverageScore, ShouldEqual, 200.0)
			So(s.TotalGames, ShouldEqual, 3)
			So(s.MostPlayedGame, ShouldEqual, "A")
		})
	})

	Convey("Given a single zero score", t, func() {
		s := stats.Aggregate([]model.ScoreRecord{rec("Tetris", 0, "2024-05-05")})

		Convey("Then the highest score is zero and the game is still most played", func() {
			So(s.HighestScore, ShouldEqual, 0)
			So(s.TotalGames, ShouldEqual, 1)
			So(s.MostPlayedGame, ShouldEqual, "Tetris")
		})
	})

	Convey("Given an average that is not a whole number", t, func() {
		s := stats.Aggregate([]model.ScoreRecord{rec("A", 1, ""), rec("A", 2, "")})

		Convey("Then the average is not truncated", func() {
			So(s.AverageScore, ShouldEqual, 1.5)
		})
	})

	Convey("Given titles tied for the highest count", t, func() {
		records := []model.ScoreRecord{
			rec("Zelda", 10, "2024-01-04"),
			rec("Mario", 20, "2024-01-03"),
			rec("Mario", 30, "2024-01-02"),
			rec("Zelda", 40, "2024-01-01"),
		}

		Convey("Then the title seen first wins", func() {
			So(stats.Aggregate(records).MostPlayedGame, ShouldEqual, "Zelda")
		})

		Convey("And putting the other title first changes the winner", func() {
			swapped := []model.ScoreRecord{records[1], records[0], records[2], records[3]}
			So(stats.Aggregate(swapped).MostPlayedGame, ShouldEqual, "Mario")
		})
	})

	Convey("Given many maximum-value scores", t, func() {
		records := make([]model.ScoreRecord, 10_000)
		for i := range records {
			records[i] = rec("Grind", model.MaxScore, "2024-01-01")
		}
		s := stats.Aggregate(records)

		Convey("Then the total does not overflow", func() {
			So(s.TotalScore, ShouldEqual, int64(model.MaxScore)*10_000)
			So(s.AverageScore, ShouldEqual, float64(model.MaxScore))
		})
	})
}

func TestAggregateProperties(t *testing.T) {
	Convey("Given random record sequences", t, func() {
		rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic fixtures

		for round := 0; round < 50; round++ {
			n := 1 + rng.Intn(40)
			records := make([]model.ScoreRecord, n)
			var sum int64
			highest := -1
			for i := range records {
				score := rng.Intn(model.MaxScore + 1)
				records[i] = rec("G"+strconv.Itoa(rng.Intn(5)), score, "2024-01-01")
				sum += int64(score)
				if score > highest {
					highest = score
				}
			}

			s := stats.Aggregate(records)
			So(s.TotalGames, ShouldEqual, n)
			So(s.TotalScore, ShouldEqual, sum)
			So(s.HighestScore, ShouldEqual, highest)
			So(s.AverageScore, ShouldEqual, float64(sum)/float64(n))
			So(stats.Aggregate(records), ShouldResemble, s)

			shuffled := append([]model.ScoreRecord(nil), records...)
			rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			p := stats.Aggregate(shuffled)
			So(p.TotalGames, ShouldEqual, s.TotalGames)
			So(p.TotalScore, ShouldEqual, s.TotalScore)
			So(p.HighestScore, ShouldEqual, s.HighestScore)
			So(p.AverageScore, ShouldEqual, s.AverageScore)

			counts := map[string]int{}
			for _, r := range records {
				counts[r.Game]++
			}
			So(counts[p.MostPlayedGame], ShouldEqual, counts[s.MostPlayedGame])
		}
	})
}

func TestMeter(t *testing.T) {
	Convey("Given meter inputs", t, func() {
		So(stats.Meter(150, 300), ShouldEqual, 50.0)
		So(stats.Meter(300, 300), ShouldEqual, 100.0)
		So(stats.Meter(10, 0), ShouldEqual, 0.0)
		So(stats.Meter(0, 0), ShouldEqual, 0.0)
		So(stats.Meter(500, 300), ShouldEqual, 100.0)
	})
}
