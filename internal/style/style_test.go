package style

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestResolveEmptyIsDefault(t *testing.T) {
	if got := Resolve(Partial{}); got != Default {
		t.Errorf("Resolve(empty) = %+v, want %+v", got, Default)
	}
}

func TestResolveKeepsProvidedZero(t *testing.T) {
	zero := 0.0
	got := Resolve(Partial{Weight: &zero, FillOpacity: &zero})
	if got.Weight != 0 || got.FillOpacity != 0 {
		t.Errorf("provided zero was replaced: %+v", got)
	}
	if got.Radius != Default.Radius || got.Color != Default.Color {
		t.Errorf("unprovided fields changed: %+v", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      map[string]any
		want    Descriptor
		wantErr bool
	}{
		{
			name: "numeric strings are coerced",
			in:   map[string]any{"weight": "5", "radius": " 12.5 ", "fillOpacity": "0"},
			want: Descriptor{Color: "#ff6b6b", Weight: 5, FillOpacity: 0, Radius: 12.5, Shape: ShapeCircle},
		},
		{
			name: "out of range accepted",
			in:   map[string]any{"fillOpacity": 3.0, "weight": -1.0},
			want: Descriptor{Color: "#ff6b6b", Weight: -1, FillOpacity: 3, Radius: 6, Shape: ShapeCircle},
		},
		{
			name: "color and shape",
			in:   map[string]any{"color": "#00ff00", "shape": "Marker"},
			want: Descriptor{Color: "#00ff00", Weight: 2, FillOpacity: 0.4, Radius: 6, Shape: ShapeMarker},
		},
		{
			name: "null means not provided",
			in:   map[string]any{"weight": nil},
			want: Default,
		},
		{name: "bad number", in: map[string]any{"weight": "thick"}, wantErr: true},
		{name: "bad shape", in: map[string]any{"shape": "square"}, wantErr: true},
		{name: "empty color", in: map[string]any{"color": "  "}, wantErr: true},
		{name: "nan string", in: map[string]any{"weight": "NaN"}, wantErr: true},
		{name: "inf string", in: map[string]any{"radius": "Inf"}, wantErr: true},
		{name: "infinity string", in: map[string]any{"fillOpacity": "-Infinity"}, wantErr: true},
		{name: "inf float", in: map[string]any{"weight": math.Inf(1)}, wantErr: true},
		{name: "nan float", in: map[string]any{"radius": math.NaN()}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var fe *FieldError
				if !errors.As(err, &fe) {
					t.Errorf("error %T is not *FieldError", err)
				}
				return
			}
			if got := Resolve(p); got != tt.want {
				t.Errorf("Resolve(Parse()) = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Descriptor)
		field string
	}{
		{name: "default", edit: func(*Descriptor) {}},
		{name: "out of range numbers", edit: func(d *Descriptor) { d.Weight = -3; d.FillOpacity = 7 }},
		{name: "unknown shape", edit: func(d *Descriptor) { d.Shape = "square" }, field: "shape"},
		{name: "empty shape", edit: func(d *Descriptor) { d.Shape = "" }, field: "shape"},
		{name: "empty color", edit: func(d *Descriptor) { d.Color = "" }, field: "color"},
		{name: "nan weight", edit: func(d *Descriptor) { d.Weight = math.NaN() }, field: "weight"},
		{name: "inf radius", edit: func(d *Descriptor) { d.Radius = math.Inf(-1) }, field: "radius"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Default
			tt.edit(&d)
			err := d.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("Validate() = %v, want *FieldError", err)
			}
			if fe.Field != tt.field {
				t.Errorf("Field = %q, want %q", fe.Field, tt.field)
			}
		})
	}
}

func TestMergeOverBase(t *testing.T) {
	base := Descriptor{Color: "#123456", Weight: 4, FillOpacity: 0.1, Radius: 9, Shape: ShapeMarker}
	color := "#abcdef"
	got := Merge(base, Partial{Color: &color})
	want := base
	want.Color = color
	if got != want {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
}

func TestPartialJSON(t *testing.T) {
	var p Partial
	if err := json.Unmarshal([]byte(`{"color":"#000000","radius":"3"}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.Color == nil || *p.Color != "#000000" || p.Radius == nil || *p.Radius != 3 {
		t.Errorf("unexpected partial %+v", p)
	}
	if p.Weight != nil || p.Shape != nil {
		t.Error("unprovided fields should stay nil")
	}

	out, err := json.Marshal(Of(Default))
	if err != nil {
		t.Fatal(err)
	}
	var back Partial
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if Resolve(back) != Default {
		t.Errorf("round trip = %+v", Resolve(back))
	}
}
