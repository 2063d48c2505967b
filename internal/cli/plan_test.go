package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zetareticula/modelflow/internal/config"
)

func TestPlanCmd_PrintsBatchesAndSchedule(t *testing.T) {
	var data, notices bytes.Buffer
	out := &Output{w: &data, errW: &notices}

	cmd := NewPlanCmd(
		func() config.Settings { return config.FromEnv() },
		func() *Output { return out },
	)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("plan: %v", err)
	}

	table := data.String()
	if !strings.Contains(table, "BATCH") {
		t.Errorf("missing table header:\n%s", table)
	}
	for _, stage := range []string{"start_pipeline", "quantize_model", "record_release"} {
		if !strings.Contains(table, stage) {
			t.Errorf("stage %s missing from plan:\n%s", stage, table)
		}
	}

	// Расписание по умолчанию @hourly выводится с ближайшим временем.
	notice := notices.String()
	if !strings.Contains(notice, "@hourly") || !strings.Contains(notice, "next occurrence") {
		t.Errorf("schedule notice = %q", notice)
	}
}
