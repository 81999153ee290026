package provisioner

import "testing"

func TestMergeApplicationsFromAbsent(t *testing.T) {
	got := mergeApplications(nil, []string{"john_doe@domain.com", "p1"})
	if got != "john_doe@domain.com,p1" {
		t.Fatalf("unexpected merge: %q", got)
	}
}

func TestMergeApplicationsFromString(t *testing.T) {
	got := mergeApplications("a, b", []string{"c"})
	if got != "a,b,c" {
		t.Fatalf("unexpected merge: %q", got)
	}
}

func TestMergeApplicationsFromList(t *testing.T) {
	// the backend returns a list holding a single comma-joined string;
	// decoded JSON arrives as []any
	got := mergeApplications([]any{"a,b", "c"}, []string{"d", "b"})
	if got != "a,b,c,d" {
		t.Fatalf("unexpected merge: %q", got)
	}
}

func TestMergeApplicationsMonotone(t *testing.T) {
	// two runs adding p1 then p2 keep both, once each, first-seen order
	first := mergeApplications(nil, []string{"john_doe@domain.com", "p1"})
	second := mergeApplications([]any{first}, []string{"john_doe@domain.com", "p2"})
	if second != "john_doe@domain.com,p1,p2" {
		t.Fatalf("merge not monotone: %q", second)
	}
	third := mergeApplications([]any{second}, []string{"john_doe@domain.com", "p2"})
	if third != second {
		t.Fatalf("repeat merge changed value: %q -> %q", second, third)
	}
}

func TestMergeApplicationsTrimsAndDropsEmpty(t *testing.T) {
	got := mergeApplications(" a , ,b,", []string{" c "})
	if got != "a,b,c" {
		t.Fatalf("unexpected merge: %q", got)
	}
}
