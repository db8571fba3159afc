package intent

import (
	"reflect"
	"testing"
)

func TestPolicyLookups(t *testing.T) {
	pol := &Policy{
		Name: "p",
		Users: []UserGroup{
			{Name: "employees", Kind: UserKindGroup},
		},
		Apps: []Application{
			{Name: "app1", Address: "app1.ziti", Segment: "corp"},
		},
		Segments: []Segment{
			{Name: "corp", VLAN: 100, VRF: 1},
		},
	}

	if app, ok := pol.FindApp("app1"); !ok || app.Address != "app1.ziti" {
		t.Errorf("FindApp(app1) = %+v, %v", app, ok)
	}
	if _, ok := pol.FindApp("nope"); ok {
		t.Error("FindApp(nope) should not be found")
	}

	if seg, ok := pol.FindSegment("corp"); !ok || seg.VLAN != 100 {
		t.Errorf("FindSegment(corp) = %+v, %v", seg, ok)
	}
	if !pol.HasSegment("corp") || pol.HasSegment("dmz") {
		t.Error("HasSegment gave wrong answers")
	}

	if u, ok := pol.FindUser("employees"); !ok || u.Kind != UserKindGroup {
		t.Errorf("FindUser(employees) = %+v, %v", u, ok)
	}
}

func TestFindAppReturnsCopy(t *testing.T) {
	pol := &Policy{
		Name: "p",
		Apps: []Application{{Name: "app1", Port: 80}},
	}

	app, _ := pol.FindApp("app1")
	app.Port = 9999

	if pol.Apps[0].Port != 80 {
		t.Error("FindApp must return a copy, original was mutated")
	}
}

func TestEgressSegmentsSorted(t *testing.T) {
	pol := &Policy{
		Name: "p",
		Egress: map[string]EgressPolicy{
			"voice": {Action: EgressRouteViaPOP},
			"corp":  {Action: EgressRouteViaPOP},
			"guest": {Action: EgressLocalBreakout},
			"iot":   {Action: EgressDrop},
		},
	}

	want := []string{"corp", "guest", "iot", "voice"}
	for i := 0; i < 5; i++ {
		got := pol.EgressSegments()
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("EgressSegments() = %v, want %v", got, want)
		}
	}
}
