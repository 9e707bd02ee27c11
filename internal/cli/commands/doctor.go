package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/liveinspect/internal/cli/config"
	"github.com/leapstack-labs/liveinspect/internal/cli/output"
	"github.com/leapstack-labs/liveinspect/pkg/loader"
)

// Check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

// maxDoctorDetails caps the details shown per check in text output.
const maxDoctorDetails = 3

// DoctorOutput is the structured output of the doctor command.
type DoctorOutput struct {
	Host         string        `json:"host" yaml:"host"`
	ConfigFile   string        `json:"config_file,omitempty" yaml:"config_file,omitempty"`
	Modules      int           `json:"modules" yaml:"modules"`
	HealthChecks []HealthCheck `json:"health_checks" yaml:"health_checks"`
	Score        int           `json:"score" yaml:"score"`
	IssueCount   int           `json:"issue_count" yaml:"issue_count"`
}

// HealthCheck is the result of one check.
type HealthCheck struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Group      string   `json:"group" yaml:"group"`
	Status     string   `json:"status" yaml:"status"`
	IssueCount int      `json:"issue_count" yaml:"issue_count"`
	Details    []string `json:"details,omitempty" yaml:"details,omitempty"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that every module of the host can be inspected",
		Long: `Import and inspect every module the configured host knows, then report
modules that fail to import, exported names that do not exist, aliases
whose targets cannot be found and the state of the state database.

A health score from 0 to 100 summarizes the findings.`,
		Example: `  liveinspect doctor
  liveinspect doctor --host go -o json`,
		RunE: runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	out := &DoctorOutput{Host: cc.Runtime.Name, ConfigFile: config.GetConfigFileUsed()}

	names, err := cc.Runtime.Modules()
	hostCheck := HealthCheck{ID: "H01", Name: "Host lists modules", Group: "host", Status: statusPass}
	if err != nil {
		hostCheck.Status = statusError
		hostCheck.Details = []string{err.Error()}
	} else if len(names) == 0 {
		hostCheck.Status = statusWarn
		hostCheck.Details = []string{"no modules found"}
	}
	out.Modules = len(names)
	out.HealthChecks = append(out.HealthChecks, withCount(hostCheck))

	inspectOpts, err := cc.Cfg.InspectOptions(cc.Logger)
	if err != nil {
		return err
	}
	inspectOpts.Lines = cc.Lines
	ld := loader.New(cc.Runtime.Importer, loader.Options{Inspect: inspectOpts, Workers: cc.Cfg.Workers, Logger: cc.Logger})

	importCheck := HealthCheck{ID: "M01", Name: "Modules import and inspect", Group: "modules", Status: statusPass}
	for _, name := range names {
		if _, err := ld.Load(ctx, name); err != nil {
			importCheck.Status = statusError
			importCheck.Details = append(importCheck.Details, err.Error())
		}
	}
	out.HealthChecks = append(out.HealthChecks, withCount(importCheck))

	exportCheck := HealthCheck{ID: "M02", Name: "Exported names exist", Group: "modules", Status: statusPass}
	if missing := ld.ExpandExports(); len(missing) > 0 {
		exportCheck.Status = statusWarn
		exportCheck.Details = missing
	}
	out.HealthChecks = append(out.HealthChecks, withCount(exportCheck))

	aliasCheck := HealthCheck{ID: "M03", Name: "Aliases resolve", Group: "modules", Status: statusPass}
	if unresolved, _ := ld.ResolveAliases(ctx, true, defaultResolveIterations); len(unresolved) > 0 {
		aliasCheck.Status = statusWarn
		aliasCheck.Details = unresolved
	}
	out.HealthChecks = append(out.HealthChecks, withCount(aliasCheck))

	out.HealthChecks = append(out.HealthChecks, withCount(stateCheck(ctx, cc)))

	for _, c := range out.HealthChecks {
		out.IssueCount += c.IssueCount
	}
	out.Score = calculateHealthScore(out.HealthChecks, out.Modules)

	switch {
	case cc.Renderer.IsStructured():
		return cc.Renderer.Data(out)
	case cc.Renderer.Mode() == output.ModeMarkdown:
		renderDoctorMarkdown(cc.Renderer, out)
	default:
		renderDoctorText(cc.Renderer, out)
	}
	return nil
}

func withCount(c HealthCheck) HealthCheck {
	if c.Status != statusPass {
		c.IssueCount = len(c.Details)
		if c.IssueCount == 0 {
			c.IssueCount = 1
		}
	}
	return c
}

func stateCheck(ctx context.Context, cc *CommandContext) HealthCheck {
	c := HealthCheck{ID: "S01", Name: "State database is migrated", Group: "state", Status: statusPass}
	path := cc.Cfg.StatePath
	if path != ":memory:" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			c.Status = statusWarn
			c.Details = []string{fmt.Sprintf("no state database at %s (run 'liveinspect save')", path)}
			return c
		}
	}
	st, err := cc.OpenStore()
	if err != nil {
		c.Status = statusError
		c.Details = []string{err.Error()}
		return c
	}
	defer func() { _ = st.Close() }()
	if _, err := st.SchemaVersion(ctx); err != nil {
		c.Status = statusError
		c.Details = []string{err.Error()}
	}
	return c
}

// calculateHealthScore computes a health score from 0-100.
// Each issue costs points; the cost shrinks as the number of modules grows.
func calculateHealthScore(checks []HealthCheck, moduleCount int) int {
	if len(checks) == 0 {
		return 100
	}

	score := 100.0
	basePenalty := 5.0
	if moduleCount > 10 {
		basePenalty = 3.0
	}
	if moduleCount > 50 {
		basePenalty = 2.0
	}
	if moduleCount > 100 {
		basePenalty = 1.0
	}

	for _, check := range checks {
		switch check.Status {
		case statusError:
			score -= float64(check.IssueCount) * basePenalty * 2 // Errors count double
		case statusWarn:
			score -= float64(check.IssueCount) * basePenalty
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score)
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Label.Render("liveinspect health report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println(fmt.Sprintf("   Host: %s | Modules: %d", out.Host, out.Modules))
	if out.ConfigFile != "" {
		r.Println(styles.Muted.Render("   Config: " + out.ConfigFile))
	}
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("   " + titleCaser.String(currentGroup))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case statusWarn:
			icon = styles.Warning.Render("!")
		case statusError:
			icon = styles.Error.Render("✗")
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.ID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		for i, detail := range check.Details {
			if i >= maxDoctorDetails {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-maxDoctorDetails)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Println("   Health Score: " + scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# liveinspect health report")
	r.Println("")
	r.Println(fmt.Sprintf("- **Host**: %s", out.Host))
	r.Println(fmt.Sprintf("- **Modules**: %d", out.Modules))
	if out.ConfigFile != "" {
		r.Println(fmt.Sprintf("- **Config**: %s", out.ConfigFile))
	}
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("## " + titleCaser.String(currentGroup))
			r.Println("")
		}

		line := fmt.Sprintf("- **[%s]** %s: %s", strings.ToUpper(check.Status), check.ID, check.Name)
		if check.IssueCount > 0 {
			line += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println(line)
		for _, detail := range check.Details {
			r.Println("  - " + detail)
		}
	}
	r.Println("")
	r.Println("## Health Score")
	r.Println("")
	r.Println(fmt.Sprintf("**%d/100**", out.Score))
}
