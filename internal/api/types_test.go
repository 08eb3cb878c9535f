package api

import (
	"encoding/json"
	"testing"
)

func TestCreateRequestAmountText(t *testing.T) {
	cases := map[string]string{
		`{"title":"a","amount":15000}`:   "15000",
		`{"title":"a","amount":"12,50"}`: "12,50",
		`{"title":"a","amount":" 3.5 "}`: " 3.5 ",
		`{"title":"a","amount":null}`:    "",
		`{"title":"a"}`:                  "",
		`{"title":"a","amount":-2}`:      "-2",
	}
	for in, want := range cases {
		var req CreateRequest
		if err := json.Unmarshal([]byte(in), &req); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if got := req.AmountText(); got != want {
			t.Fatalf("%s: expected %q, got %q", in, want, got)
		}
	}
}
