package army

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
)

var daytime = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newRegistry() (*Registry, *event.Bus) {
	bus := event.New()
	return New(bus, func() time.Time { return daytime }), bus
}

func extraction(name, rank string) Extraction {
	return Extraction{Name: name, Type: TypeWarrior, Rank: rank, Description: "test duty"}
}

func TestExtract_LevelGateBeforeCapacityGate(t *testing.T) {
	// A low-level player is declined on level even when capacity is also
	// exhausted.
	r, _ := newRegistry()
	for i := 0; i < 5; i++ {
		if _, err := r.Extract(extraction(fmt.Sprintf("k%d", i), RankKnight), 30); err != nil {
			t.Fatalf("setup extract: %v", err)
		}
	}
	_, err := r.Extract(extraction("late", RankKnight), 10)
	if !errors.Is(err, ErrLevelTooLow) {
		t.Errorf("err = %v, want ErrLevelTooLow", err)
	}
}

func TestExtract_CapacityDeclined(t *testing.T) {
	// The sixth knight is declined: knight cap is 5.
	r, _ := newRegistry()
	for i := 0; i < 5; i++ {
		if _, err := r.Extract(extraction(fmt.Sprintf("k%d", i), RankKnight), 30); err != nil {
			t.Fatalf("extract %d: %v", i, err)
		}
	}
	_, err := r.Extract(extraction("overflow", RankKnight), 30)
	if !errors.Is(err, ErrArmyCapacity) {
		t.Errorf("err = %v, want ErrArmyCapacity", err)
	}
}

func TestExtract_DestroyedAgentFreesCapacity(t *testing.T) {
	r, _ := newRegistry()
	a, err := r.Extract(extraction("solo", RankMonarch), 60)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, err := r.Extract(extraction("second", RankMonarch), 60); !errors.Is(err, ErrArmyCapacity) {
		t.Fatalf("err = %v, want ErrArmyCapacity", err)
	}
	if err := r.Destroy(a.ID); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := r.Extract(extraction("second", RankMonarch), 60); err != nil {
		t.Errorf("extract after destroy: %v", err)
	}
}

func TestExtract_UnknownRank(t *testing.T) {
	r, _ := newRegistry()
	if _, err := r.Extract(extraction("x", "general"), 99); !errors.Is(err, ErrUnknownRank) {
		t.Errorf("err = %v, want ErrUnknownRank", err)
	}
}

func TestDeployRecall_Lifecycle(t *testing.T) {
	r, _ := newRegistry()
	a, _ := r.Extract(extraction("w", RankNormal), 5)

	if err := r.Deploy(a.ID); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if err := r.Deploy(a.ID); !errors.Is(err, ErrAgentState) {
		t.Errorf("double deploy err = %v, want ErrAgentState", err)
	}
	if err := r.Recall(a.ID); err != nil {
		t.Fatalf("recall: %v", err)
	}
	got, _ := r.Get(a.ID)
	if got.Status != StatusDormant {
		t.Errorf("status = %s, want dormant", got.Status)
	}
}

func TestExecute_OnlyWhenDeployed(t *testing.T) {
	r, _ := newRegistry()
	a, _ := r.Extract(extraction("w", RankNormal), 5)
	if _, err := r.Execute(a.ID); !errors.Is(err, ErrAgentState) {
		t.Fatalf("execute dormant err = %v, want ErrAgentState", err)
	}
	r.Deploy(a.ID)
	res, err := r.Execute(a.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res["execution_number"] != 1 {
		t.Errorf("execution_number = %v, want 1", res["execution_number"])
	}
	got, _ := r.Get(a.ID)
	if got.Executions != 1 || got.LastExecuted == nil {
		t.Errorf("agent counters = %+v", got)
	}
}

func TestReportResult_SuccessPaysExpAndCascades(t *testing.T) {
	// Success pays 10+2*level; the level-up threshold grows by x1.5.
	r, _ := newRegistry()
	a, _ := r.Extract(extraction("w", RankNormal), 5)
	r.Deploy(a.ID)

	// 12 exp per success at level 1; 9 successes > 100.
	for i := 0; i < 9; i++ {
		r.Execute(a.ID)
		if err := r.ReportResult(a.ID, true); err != nil {
			t.Fatalf("report: %v", err)
		}
	}
	got, _ := r.Get(a.ID)
	if got.Level != 2 {
		t.Errorf("level = %d, want 2", got.Level)
	}
	if got.Exp != 9*12-100 {
		t.Errorf("exp = %d, want %d", got.Exp, 9*12-100)
	}
	if got.ExpToNext != 150 {
		t.Errorf("exp_to_next = %d, want 150", got.ExpToNext)
	}
}

func TestReportResult_FailureCostsLoyaltyAndDestroys(t *testing.T) {
	// Each failure costs 0.05 loyalty; at 0.2 the agent dissolves.
	r, bus := newRegistry()
	var destroyed bool
	bus.Subscribe(event.AgentDestroyed, "t", func(event.Event) error {
		destroyed = true
		return nil
	})
	a, _ := r.Extract(extraction("w", RankNormal), 5)
	r.Deploy(a.ID)

	// 17 failures push loyalty clearly past the 0.2 desertion line.
	for i := 0; i < 17; i++ {
		r.ReportResult(a.ID, false)
	}
	got, _ := r.Get(a.ID)
	if got.Status != StatusDestroyed {
		t.Errorf("status = %s, want destroyed (loyalty %.2f)", got.Status, got.Loyalty)
	}
	if !destroyed {
		t.Error("AgentDestroyed not published")
	}
}

func TestPower_RankWeightTimesLevelTimesLoyalty(t *testing.T) {
	r, _ := newRegistry()
	r.Extract(extraction("n", RankNormal), 5)   // 1*1*1.0 = 1
	r.Extract(extraction("e", RankElite), 15)   // 5*1*1.0 = 5
	r.Extract(extraction("k", RankKnight), 25)  // 20*1*1.0 = 20
	if got := r.Power(); got != 26 {
		t.Errorf("power = %d, want 26", got)
	}
}

func TestOverview_SortsStrongestFirst(t *testing.T) {
	r, _ := newRegistry()
	r.Extract(extraction("n", RankNormal), 5)
	r.Extract(extraction("k", RankKnight), 25)
	ov := r.Overview()
	if ov.Total != 2 || ov.Soldiers[0].Rank != RankKnight {
		t.Errorf("overview = %+v", ov)
	}
	if ov.ByRank[RankKnight]["count"] != 1 || ov.ByRank[RankKnight]["max"] != 5 {
		t.Errorf("by_rank = %v", ov.ByRank)
	}
}

func TestExtractTemplate_GatesAndDuplicates(t *testing.T) {
	r, _ := newRegistry()
	if _, err := r.ExtractTemplate("daily_reporter", 5); !errors.Is(err, ErrLevelTooLow) {
		t.Fatalf("err = %v, want ErrLevelTooLow", err)
	}
	if _, err := r.ExtractTemplate("daily_reporter", 15); err != nil {
		t.Fatalf("extract template: %v", err)
	}
	for _, opt := range r.TemplateOptions(15) {
		if opt.ID == "daily_reporter" && (!opt.AlreadyHave || opt.CanUnlock) {
			t.Errorf("option = %+v, want already-have", opt)
		}
	}
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	r, _ := newRegistry()
	a, _ := r.Extract(extraction("w", RankNormal), 5)
	agents := r.Snapshot()

	r2, _ := newRegistry()
	r2.Restore(agents)
	got, ok := r2.Get(a.ID)
	if !ok || got.Name != "w" || got.Loyalty != 1.0 {
		t.Errorf("restored agent = %+v", got)
	}
}
