package seed

import (
	"reflect"
	"testing"
)

func TestGeneratorDeterministicForSeed(t *testing.T) {
	first := NewGenerator(42).Plan(4, 1, 3)
	second := NewGenerator(42).Plan(4, 1, 3)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("plans differ:\n%#v\n%#v", first, second)
	}
}

func TestGeneratorRespectsBookRange(t *testing.T) {
	plans := NewGenerator(7).Plan(10, 2, 4)
	if len(plans) != 10 {
		t.Fatalf("authors = %d, want 10", len(plans))
	}
	names := map[string]struct{}{}
	for _, plan := range plans {
		if plan.Name == "" {
			t.Fatal("author name is empty")
		}
		if _, ok := names[plan.Name]; ok {
			t.Fatalf("duplicate author %q", plan.Name)
		}
		names[plan.Name] = struct{}{}
		if len(plan.Books) < 2 || len(plan.Books) > 4 {
			t.Fatalf("%s has %d books", plan.Name, len(plan.Books))
		}
		for _, title := range plan.Books {
			if title == "" {
				t.Fatalf("%s has an empty title", plan.Name)
			}
		}
	}
}

func TestTitleCase(t *testing.T) {
	if got := titleCase("sHADOW"); got != "Shadow" {
		t.Fatalf("titleCase() = %q", got)
	}
	if got := titleCase(""); got != "" {
		t.Fatalf("titleCase(\"\") = %q", got)
	}
}
