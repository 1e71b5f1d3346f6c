package device

import (
	"errors"
	"sync"
	"testing"
)

func ptr[T any](v T) *T { return &v }

type recordingSink struct {
	mu      sync.Mutex
	patches []Patch
	err     error
}

func (s *recordingSink) Submit(_ string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches = append(s.patches, p)
	return s.err
}

func mustNew(t *testing.T, id string, typ Type, sink Sink) *Device {
	t.Helper()
	d, err := New(id, typ, id, sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", TypeThermostat, "x", nil); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("New(empty id) = %v, want ErrInvalidDevice", err)
	}
	if _, err := New("dev-1", "", "x", nil); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("New(empty type) = %v, want ErrInvalidDevice", err)
	}
}

func TestDevice_DataIsSnapshot(t *testing.T) {
	d := mustNew(t, "dev-1", TypeThermostat, nil)
	d.Update(Data{
		SetPoint:          ptr(21.0),
		ModeSetpoints:     map[string]ModeSetpoint{ModeAuto: {DeadBand: 1.5}},
		SupportedFanModes: []string{"auto", "on"},
	})

	snap := d.Data()
	*snap.SetPoint = 99
	snap.ModeSetpoints[ModeAuto] = ModeSetpoint{DeadBand: 9}
	snap.SupportedFanModes[0] = "mutated"

	again := d.Data()
	if *again.SetPoint != 21 {
		t.Errorf("SetPoint leaked mutation: %v", *again.SetPoint)
	}
	if again.ModeSetpoints[ModeAuto].DeadBand != 1.5 {
		t.Errorf("ModeSetpoints leaked mutation: %v", again.ModeSetpoints)
	}
	if again.SupportedFanModes[0] != "auto" {
		t.Errorf("SupportedFanModes leaked mutation: %v", again.SupportedFanModes)
	}
	if d.LastUpdate().IsZero() {
		t.Error("LastUpdate should be set after Update")
	}
}

func TestDevice_IsOnline(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"", true},
		{CommStatusOK, true},
		{CommStatusOffline, false},
		{CommStatusError, false},
	}

	for _, tt := range tests {
		d := mustNew(t, "dev-1", TypeThermostat, nil)
		d.Update(Data{CommStatus: tt.status})
		if got := d.IsOnline(); got != tt.want {
			t.Errorf("IsOnline() with %q = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestDevice_OnData(t *testing.T) {
	d := mustNew(t, "dev-1", TypeTemperatureSensor, nil)

	var got []float64
	unsubscribe := d.OnData(func(data Data) {
		got = append(got, *data.Celsius)
	})

	d.Update(Data{Celsius: ptr(20.5)})
	d.Update(Data{Celsius: ptr(21.0)})
	unsubscribe()
	unsubscribe() // idempotent
	d.Update(Data{Celsius: ptr(22.0)})

	if len(got) != 2 || got[0] != 20.5 || got[1] != 21.0 {
		t.Errorf("notifications = %v, want [20.5 21]", got)
	}
}

func TestDevice_SetInfo(t *testing.T) {
	t.Run("submits patch without touching local state", func(t *testing.T) {
		sink := &recordingSink{}
		d := mustNew(t, "dev-1", TypeThermostat, sink)
		d.Update(Data{Mode: ModeHeat})

		if err := d.SetInfo(Patch{Mode: ptr(ModeCool)}); err != nil {
			t.Fatalf("SetInfo() error = %v", err)
		}
		if len(sink.patches) != 1 || *sink.patches[0].Mode != ModeCool {
			t.Errorf("patches = %+v", sink.patches)
		}
		if d.Data().Mode != ModeHeat {
			t.Error("SetInfo must not apply the patch locally")
		}
	})

	t.Run("empty patch", func(t *testing.T) {
		d := mustNew(t, "dev-1", TypeThermostat, &recordingSink{})
		if err := d.SetInfo(Patch{}); !errors.Is(err, ErrEmptyPatch) {
			t.Errorf("SetInfo(empty) = %v, want ErrEmptyPatch", err)
		}
	})

	t.Run("no sink", func(t *testing.T) {
		d := mustNew(t, "dev-1", TypeThermostat, nil)
		if err := d.SetInfo(Patch{FanMode: ptr("on")}); !errors.Is(err, ErrNoSink) {
			t.Errorf("SetInfo() = %v, want ErrNoSink", err)
		}
	})

	t.Run("sink error is wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		d := mustNew(t, "dev-1", TypeThermostat, &recordingSink{err: boom})
		if err := d.SetInfo(Patch{FanMode: ptr("on")}); !errors.Is(err, boom) {
			t.Errorf("SetInfo() = %v, want wrapped boom", err)
		}
	})
}

func TestSinkFunc(t *testing.T) {
	var gotID string
	sink := SinkFunc(func(id string, _ Patch) error {
		gotID = id
		return nil
	})
	d := mustNew(t, "dev-9", TypeThermostat, sink)
	if err := d.SetInfo(Patch{DeadBand: ptr(2.0)}); err != nil {
		t.Fatalf("SetInfo() error = %v", err)
	}
	if gotID != "dev-9" {
		t.Errorf("sink got id %q", gotID)
	}
}

func TestPatch_IsEmpty(t *testing.T) {
	if !(Patch{}).IsEmpty() {
		t.Error("zero Patch should be empty")
	}
	if (Patch{SetPoint: ptr(20.0)}).IsEmpty() {
		t.Error("Patch with SetPoint should not be empty")
	}
}

func TestDevice_ConcurrentUpdateAndRead(t *testing.T) {
	d := mustNew(t, "dev-1", TypeThermostat, nil)
	d.OnData(func(Data) {})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.Update(Data{SetPoint: ptr(float64(i))})
		}()
		go func() {
			defer wg.Done()
			_ = d.Data()
			_ = d.IsOnline()
		}()
	}
	wg.Wait()
}
