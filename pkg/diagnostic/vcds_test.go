package diagnostic_test

import (
	"testing"

	"github.com/garagelink/drivescan/pkg/diagnostic"
	"github.com/garagelink/drivescan/pkg/errx"
)

const sampleReport = `Monday,05,May,2025,18:02:11
VCDS -- Windows Based VAG/VAS Emulator
Chassis Type: WVWZZZ1JZXW000001

Address 01: Engine        Labels: 06A-906-032-AWW.lbl
   Part No: 06A 906 032 AWW
   Component: MOTRONIC ME7.5

2 Faults Found:
16684 - Random/Multiple Cylinder Misfire Detected
            P0300 - 35-10 - - Intermittent
16687 - Cylinder 3 Misfire Detected
            P0303 - 35-10 - - Intermittent

Address 03: ABS Brakes        Labels: 1J0-907-37x-ABS.lbl
   Part No: 1J0 907 379 P

No fault code found.

Address 17: Instruments        Labels: 1J0-920-xx5-17.lbl
1 Fault Found:
01314 - Engine Control Module
            49-10 - No Communications - Intermittent
`

func TestParseVCDS(t *testing.T) {
	summary, err := diagnostic.ParseVCDS(sampleReport)
	if err != nil {
		t.Fatalf("ParseVCDS: %v", err)
	}

	if summary.VIN != "WVWZZZ1JZXW000001" {
		t.Fatalf("expected VIN from chassis line, got %q", summary.VIN)
	}
	if len(summary.Modules) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(summary.Modules))
	}
	if summary.FaultCount != 3 {
		t.Fatalf("expected 3 faults total, got %d", summary.FaultCount)
	}

	engine := summary.Modules[0]
	if engine.Address != "01" || engine.Name != "Engine" {
		t.Fatalf("unexpected first module: %+v", engine)
	}
	if len(engine.Faults) != 2 {
		t.Fatalf("expected 2 engine faults, got %d", len(engine.Faults))
	}
	if engine.Faults[0].Code != "16684" {
		t.Fatalf("expected fault code 16684, got %q", engine.Faults[0].Code)
	}
	if engine.Faults[0].Detail != "P0300 - 35-10 - - Intermittent" {
		t.Fatalf("expected continuation detail, got %q", engine.Faults[0].Detail)
	}

	abs := summary.Modules[1]
	if len(abs.Faults) != 0 {
		t.Fatalf("expected clean ABS module, got %d faults", len(abs.Faults))
	}

	instruments := summary.Modules[2]
	if len(instruments.Faults) != 1 || instruments.Faults[0].Code != "01314" {
		t.Fatalf("unexpected instruments module: %+v", instruments)
	}
}

func TestParseVCDSRejectsUnrecognizedInput(t *testing.T) {
	for _, input := range []string{"", "hello world", "{\"not\": \"a vcds file\"}"} {
		_, err := diagnostic.ParseVCDS(input)
		if err == nil {
			t.Fatalf("expected error for input %q", input)
		}
		e, ok := errx.As(err)
		if !ok || e.Type != errx.TypeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	}
}
