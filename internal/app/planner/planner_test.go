package planner

import (
	"reflect"
	"testing"

	"github.com/John-Robertt/maiasaura/internal/domain"
)

func TestPlan_OnlyMovedEntries(t *testing.T) {
	before := []string{"A", "B", "C", "D"}
	after := []string{"B", "C", "A", "D"}

	got := Plan(before, after)
	want := []domain.PositionChange{
		{Name: "B", From: 1, To: 0},
		{Name: "C", From: 2, To: 1},
		{Name: "A", From: 0, To: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("期望 %+v，实际 %+v", want, got)
	}
}

func TestPlan_Unchanged(t *testing.T) {
	got := Plan([]string{"A", "B"}, []string{"A", "B"})
	if len(got) != 0 {
		t.Fatalf("顺序未变时不应有变化：%+v", got)
	}
}

func TestPlan_IgnoresUnknownNames(t *testing.T) {
	got := Plan([]string{"A", "B"}, []string{"X", "B", "A"})
	want := []domain.PositionChange{
		{Name: "A", From: 0, To: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("期望 %+v，实际 %+v", want, got)
	}
}
