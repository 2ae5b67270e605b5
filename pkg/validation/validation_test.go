package validation

import "testing"

type eventInput struct {
	Title string `json:"title" validate:"required,max=120"`
	Date  string `json:"date" validate:"required,calendardate"`
	Time  string `json:"time" validate:"required,clock"`
	Type  string `json:"type" validate:"required,eventtype"`
	Phone string `json:"phone" validate:"omitempty,phone"`
}

func TestValidateUsesJSONFieldNames(t *testing.T) {
	errs, err := Validate(eventInput{Date: "10/01/2024", Time: "25:00", Type: "Fiesta", Phone: "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, field := range []string{"title", "date", "time", "type", "phone"} {
		if len(errs[field]) == 0 {
			t.Errorf("expected error for %q, got %v", field, errs)
		}
	}
}

func TestValidateAcceptsDomainValues(t *testing.T) {
	errs, err := Validate(eventInput{
		Title: "Audiencia de Pruebas",
		Date:  "2024-01-10",
		Time:  "10:00",
		Type:  "Audiencia",
		Phone: "+52 (55) 1234-5678",
	})
	if err != nil || errs != nil {
		t.Fatalf("valid input rejected: %v %v", errs, err)
	}
}
