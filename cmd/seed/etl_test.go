package main

import (
	"reflect"
	"testing"

	"github.com/kleen-pos/api/internal/database"
)

func TestInsertSQL(t *testing.T) {
	got := insertSQL("branches", []string{"name", "city"}, "id")
	want := "INSERT INTO branches (name, city) VALUES ($1, $2) RETURNING id"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := insertSQL("services", []string{"name"}, ""); got != "INSERT INTO services (name) VALUES ($1)" {
		t.Errorf("got %q", got)
	}
}

func TestAvailableColumns(t *testing.T) {
	set := database.ColumnSet{"name": true, "city": true, "settings": true}

	cols, err := availableColumns("branches", set, branchColumns, []string{"name"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"name", "city", "settings"}; !reflect.DeepEqual(cols, want) {
		t.Errorf("cols = %v, want %v", cols, want)
	}

	if _, err := availableColumns("services", set, serviceColumns, []string{"branch_id"}); err == nil {
		t.Error("expected error for missing required column")
	}
}
