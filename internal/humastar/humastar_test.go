package humastar

import "testing"

func TestActionLinkHeader(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{Action{Rel: "layer", Href: "/api/v1/layers/a"}, `</api/v1/layers/a>; rel="layer"`},
		{Action{Rel: "hide", Href: "/api/v1/layers/a/visibility", Method: "PUT"}, `</api/v1/layers/a/visibility>; rel="hide"; method="PUT"`},
		{
			Action{Rel: "delete", Href: "/api/v1/layers/a", Method: "DELETE", Title: "Remove layer"},
			`</api/v1/layers/a>; rel="delete"; method="DELETE"; title="Remove layer"`,
		},
	}
	for _, tt := range tests {
		if got := tt.action.LinkHeader(); got != tt.want {
			t.Errorf("LinkHeader() = %q, want %q", got, tt.want)
		}
	}
}
