package sanitize

import (
	"reflect"
	"testing"
)

func TestParseTables(t *testing.T) {
	valid, invalid := ParseTables(" roles, users ,,scans; DROP TABLE x,_tmp1,9bad")
	if want := []string{"roles", "users", "_tmp1"}; !reflect.DeepEqual(valid, want) {
		t.Fatalf("valid = %v, want %v", valid, want)
	}
	if want := []string{"scans; DROP TABLE x", "9bad"}; !reflect.DeepEqual(invalid, want) {
		t.Fatalf("invalid = %v, want %v", invalid, want)
	}
}

func TestTruncateStatement(t *testing.T) {
	got := TruncateStatement([]string{"users", "scans"})
	want := `TRUNCATE TABLE "users", "scans" RESTART IDENTITY CASCADE`
	if got != want {
		t.Fatalf("got %s", got)
	}
}
