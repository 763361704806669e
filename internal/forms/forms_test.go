package forms

import (
	"errors"
	"testing"

	"github.com/ajayprojects/portal/pkg/models"
)

func testTask() models.TaskConfig {
	return models.TaskConfig{
		ID: "full_house",
		Fields: []models.TaskField{
			{Name: "project_subtype", Kind: models.FieldSelect, Options: []string{"Individual House", "Apartment Flat"}},
			{Name: "totalArea", Kind: models.FieldNumber},
			{Name: "floors", Kind: models.FieldNumber, DependsOn: "project_subtype", ShowWhen: []string{"Individual House"}},
			{Name: "flatStatus", Kind: models.FieldSelect, DependsOn: "project_subtype", ShowWhen: []string{"Apartment Flat"}},
		},
	}
}

func TestVisibleNoDependency(t *testing.T) {
	f := models.TaskField{Name: "totalArea"}
	if !Visible(f, models.FormInputs{}) {
		t.Error("independent field should always be visible")
	}
}

func TestVisibleDependentField(t *testing.T) {
	f := models.TaskField{Name: "floors", DependsOn: "project_subtype", ShowWhen: []string{"Individual House"}}

	cases := []struct {
		name   string
		inputs models.FormInputs
		want   bool
	}{
		{"parent unset", models.FormInputs{}, false},
		{"parent blank", models.FormInputs{"project_subtype": ""}, false},
		{"parent matches", models.FormInputs{"project_subtype": "Individual House"}, true},
		{"parent other value", models.FormInputs{"project_subtype": "Apartment Flat"}, false},
	}
	for _, tc := range cases {
		if got := Visible(f, tc.inputs); got != tc.want {
			t.Errorf("%s: Visible = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestVisibleMembership(t *testing.T) {
	f := models.TaskField{Name: "warranty", DependsOn: "grade", ShowWhen: []string{"Premium (Branded)", "Luxury (High-end)"}}
	if !Visible(f, models.FormInputs{"grade": "Luxury (High-end)"}) {
		t.Error("any listed value should show the field")
	}
	if Visible(f, models.FormInputs{"grade": "Budget (Basic)"}) {
		t.Error("unlisted value should hide the field")
	}
}

func TestVisibleFieldsOrder(t *testing.T) {
	task := testTask()
	got := VisibleFields(task, models.FormInputs{"project_subtype": "Apartment Flat"})
	want := []string{"project_subtype", "totalArea", "flatStatus"}
	if len(got) != len(want) {
		t.Fatalf("got %d fields, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("field %d = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestPruneDropsHiddenValues(t *testing.T) {
	task := testTask()
	// User filled floors under Individual House, then switched branch.
	inputs := models.FormInputs{
		"project_subtype": "Apartment Flat",
		"totalArea":       "1500",
		"floors":          "2",
		"flatStatus":      "Semi-Finished",
		"clientName":      "Ravi",
	}
	pruned := Prune(task, inputs)
	if _, ok := pruned["floors"]; ok {
		t.Error("stale value from hidden branch should be dropped")
	}
	if pruned["flatStatus"] != "Semi-Finished" {
		t.Error("visible branch value should survive")
	}
	if pruned["totalArea"] != "1500" {
		t.Error("independent value should survive")
	}
	if pruned["clientName"] != "Ravi" {
		t.Error("contact field should survive pruning")
	}
}

func TestValidateContact(t *testing.T) {
	err := ValidateContact(models.FormInputs{"clientName": "Ravi", "clientPhone": "9876543210"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = ValidateContact(models.FormInputs{"clientName": "  ", "clientPhone": "9876543210"})
	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if missing.Field != "clientName" {
		t.Errorf("missing field = %q, want clientName", missing.Field)
	}
}
