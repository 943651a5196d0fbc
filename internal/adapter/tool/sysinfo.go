package tool

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"higress-chat/internal/application/port/output"
	"higress-chat/internal/application/service"
	"higress-chat/internal/domain/entity"
)

var (
	_ output.ToolPort = (*CurrentTimeTool)(nil)
	_ output.ToolPort = (*SystemInfoTool)(nil)
)

// CurrentTimeTool reports the time in an optional IANA zone, local time
// otherwise.
type CurrentTimeTool struct {
	now func() time.Time
}

func NewCurrentTimeTool() *CurrentTimeTool {
	return &CurrentTimeTool{now: time.Now}
}

func (t *CurrentTimeTool) Spec() entity.ToolSpec {
	return entity.ToolSpec{
		Name:        "getCurrentTime",
		Description: "Get the current date and time.",
		Params: []entity.ToolParam{
			{Name: "timezone", Type: entity.ParamString, Description: "IANA time zone such as Asia/Shanghai"},
		},
	}
}

func (t *CurrentTimeTool) Execute(ctx context.Context, args entity.Arguments) (string, error) {
	var in struct {
		Timezone string `json:"timezone"`
	}
	if err := service.DecodeArguments(args, &in); err != nil {
		return "", err
	}

	now := t.now()
	if in.Timezone != "" {
		loc, err := time.LoadLocation(in.Timezone)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q: %w", in.Timezone, err)
		}
		now = now.In(loc)
	}
	return now.Format("2006-01-02 15:04:05 MST"), nil
}

type SystemInfoTool struct{}

func NewSystemInfoTool() *SystemInfoTool { return &SystemInfoTool{} }

func (t *SystemInfoTool) Spec() entity.ToolSpec {
	return entity.ToolSpec{
		Name:        "getSystemInfo",
		Description: "Describe the host: operating system, architecture, CPU count and runtime version.",
	}
}

func (t *SystemInfoTool) Execute(ctx context.Context, args entity.Arguments) (string, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("os=%s arch=%s cpus=%d runtime=%s host=%s",
		runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version(), host), nil
}
