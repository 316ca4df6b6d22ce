package memory

import (
	"context"
	"reflect"
	"testing"

	"surveyscope/internal/survey"
)

var fixture = []survey.Record{
	{State: "CA", Gender: "F", Age: 30, Year: "2021", EmploymentStatus: "Employed", Wage: 50000},
	{State: "TX", Gender: "M", Age: 25, Year: "2021", EmploymentStatus: "Unemployed", Wage: 0},
	{State: "CA", Gender: "M", Age: 40, Year: "2020", EmploymentStatus: "Employed", Wage: 60000},
}

func newLoaded(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	if err := s.Replace(context.Background(), fixture); err != nil {
		t.Fatalf("replace: %v", err)
	}
	return s
}

func TestQueryZeroFilterReturnsAll(t *testing.T) {
	s := newLoaded(t)
	got, err := s.Query(context.Background(), survey.Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !reflect.DeepEqual(got, fixture) {
		t.Fatalf("got %v want %v", got, fixture)
	}
}

func TestQueryPreservesStoreOrder(t *testing.T) {
	s := newLoaded(t)
	got, err := s.Query(context.Background(), survey.Filter{State: "CA"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	want := []survey.Record{fixture[0], fixture[2]}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestQueryConjunction(t *testing.T) {
	s := newLoaded(t)
	got, err := s.Query(context.Background(), survey.Filter{State: "CA", Year: "2020"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0] != fixture[2] {
		t.Fatalf("got %v", got)
	}
}

func TestDistinct(t *testing.T) {
	s := newLoaded(t)
	got, err := s.Distinct(context.Background(), survey.ColumnState)
	if err != nil {
		t.Fatalf("distinct: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"CA", "TX"}) {
		t.Fatalf("got %v", got)
	}
}

func TestLoadIfEmpty(t *testing.T) {
	s := NewStore()
	loaded, err := s.LoadIfEmpty(context.Background(), fixture)
	if err != nil || !loaded {
		t.Fatalf("first load: loaded=%v err=%v", loaded, err)
	}
	loaded, err = s.LoadIfEmpty(context.Background(), fixture[:1])
	if err != nil || loaded {
		t.Fatalf("second load should be skipped: loaded=%v err=%v", loaded, err)
	}
	n, _ := s.Count(context.Background())
	if n != len(fixture) {
		t.Fatalf("count %d", n)
	}
}

func TestReplaceResets(t *testing.T) {
	s := newLoaded(t)
	if err := s.Replace(context.Background(), fixture[:1]); err != nil {
		t.Fatalf("replace: %v", err)
	}
	n, _ := s.Count(context.Background())
	if n != 1 {
		t.Fatalf("count after replace: %d", n)
	}
}

func TestReplaceCopiesInput(t *testing.T) {
	input := append([]survey.Record{}, fixture...)
	s := NewStore()
	_ = s.Replace(context.Background(), input)
	input[0].State = "ZZ"
	got, _ := s.All(context.Background())
	if got[0].State != "CA" {
		t.Fatal("store aliased caller slice")
	}
}
