package classify

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantDevice  Device
		wantNeed    Need
		wantProblem Problem
		wantAmbig   bool
	}{
		{
			name:        "notebook no power spanish",
			text:        "mi notebook HP no enciende",
			wantDevice:  DeviceNotebook,
			wantNeed:    NeedAssist,
			wantProblem: ProblemNoPower,
			wantAmbig:   false,
		},
		{
			name:        "router wan howto",
			text:        "asistencia para configurar una conexión wan en un microtik",
			wantDevice:  DeviceRouter,
			wantNeed:    NeedHowto,
			wantProblem: ProblemNoNetwork,
			wantAmbig:   false,
		},
		{
			name:        "tv stick install",
			text:        "necesito ayuda para instalar una app en mi stick tv",
			wantDevice:  DeviceTVStick,
			wantNeed:    NeedHowto,
			wantAmbig:   false,
			wantProblem: ProblemOther,
		},
		{
			name:        "generic compu is ambiguous device",
			text:        "mi compu no enciende",
			wantDevice:  DeviceDesktop,
			wantNeed:    NeedAssist,
			wantProblem: ProblemNoPower,
			wantAmbig:   true, // weak keyword only, confidence below 0.5
		},
		{
			name:        "english wont power on",
			text:        "my laptop won't turn on",
			wantDevice:  DeviceNotebook,
			wantNeed:    NeedAssist,
			wantProblem: ProblemNoPower,
			wantAmbig:   false,
		},
		{
			name:        "slow desktop",
			text:        "la pc de escritorio anda lentisima, se traba todo el tiempo",
			wantDevice:  DeviceDesktop,
			wantNeed:    NeedUnknown,
			wantProblem: ProblemSlow,
			wantAmbig:   true,
		},
		{
			name:      "empty text",
			text:      "   ",
			wantAmbig: true,
		},
		{
			name:        "printer jam",
			text:        "la impresora no imprime, creo que hay un atasco de papel",
			wantDevice:  DevicePrinter,
			wantNeed:    NeedAssist,
			wantProblem: ProblemPeripheral,
			wantAmbig:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			if got.Device != tt.wantDevice {
				t.Errorf("Device = %q, want %q", got.Device, tt.wantDevice)
			}
			if got.Need != tt.wantNeed {
				t.Errorf("Need = %q, want %q", got.Need, tt.wantNeed)
			}
			if tt.wantProblem != "" && got.Problem != tt.wantProblem {
				t.Errorf("Problem = %q, want %q", got.Problem, tt.wantProblem)
			}
			if got.Ambiguous != tt.wantAmbig {
				t.Errorf("Ambiguous = %v, want %v (confidence %.2f)", got.Ambiguous, tt.wantAmbig, got.DeviceConfidence)
			}
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	a := Classify("mi notebook no enciende")
	b := Classify("mi notebook no enciende")
	if a != b {
		t.Errorf("Classify is not deterministic: %+v vs %+v", a, b)
	}
}
