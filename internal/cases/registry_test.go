package cases

import (
	"errors"
	"reflect"
	"testing"
)

func TestRegistry_RegisterConflict(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&BurstType{}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := reg.Register(&BurstType{})
	if !errors.Is(err, ErrRegistryConflict) {
		t.Fatalf("second Register err = %v, want ErrRegistryConflict", err)
	}
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	if err := RegisterBuiltins(reg); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	want := []string{"bursts", "oldjobs"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistry_Deregister(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&BurstType{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	reg.Deregister("bursts")
	if _, ok := reg.Lookup("bursts"); ok {
		t.Error("Lookup found a deregistered type")
	}
	// Re-registering after deregistration works.
	if err := reg.Register(&BurstType{}); err != nil {
		t.Errorf("re-Register: %v", err)
	}
}

func TestRegistry_DescribeWrapsCommonColumns(t *testing.T) {
	reg := NewRegistry()
	if err := RegisterBuiltins(reg); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}

	descs := reg.Describe()
	bursts, ok := descs["bursts"]
	if !ok {
		t.Fatal("Describe() missing bursts")
	}
	if bursts.Table != "bursts" || bursts.Metric != "pain" {
		t.Errorf("bursts description = %+v, want table=bursts metric=pain", bursts)
	}

	if len(bursts.Cols) < 8 {
		t.Fatalf("bursts has %d cols, want type cols plus common wrapper", len(bursts.Cols))
	}
	if bursts.Cols[0].Datum != "ticks" || bursts.Cols[1].Datum != "account" {
		t.Errorf("leading cols = %s, %s, want ticks, account", bursts.Cols[0].Datum, bursts.Cols[1].Datum)
	}
	last := bursts.Cols[len(bursts.Cols)-1]
	if last.Datum != "notes" {
		t.Errorf("trailing col = %s, want notes", last.Datum)
	}
}

func TestSummarizeCommon(t *testing.T) {
	alice := "alice"
	tests := []struct {
		name    string
		touched []Touched
		want    string
	}{
		{
			name:    "empty report",
			touched: nil,
			want:    "There are 0 cases (0 new and 0 existing).  0 are claimed.",
		},
		{
			name: "mixed",
			touched: []Touched{
				{ID: 1, Ticks: 1},
				{ID: 2, Ticks: 3, Claimant: &alice},
			},
			want: "There are 2 cases (1 new and 1 existing).  1 are claimed.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := summarizeCommon(tt.touched); got != tt.want {
				t.Errorf("summarizeCommon() = %q, want %q", got, tt.want)
			}
		})
	}
}
