package setup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/quorum/config"
	"github.com/vadiminshakov/quorum/internal/domain"
	"github.com/vadiminshakov/quorum/internal/storage/history"
)

// DefaultOutput is the file written by the wizard.
const DefaultOutput = "quorum.gen.yaml"

// ErrCancelled is returned when the user declines to save.
var ErrCancelled = errors.New("setup cancelled by user")

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// Answers holds raw wizard input, kept as strings the way the form fields hold them.
type Answers struct {
	Addr     string
	LogLevel string

	Backend string
	Dir     string
	Limit   string

	Weights       map[domain.PerspectiveID]string
	VetoThreshold string
	MaxSize       string
}

// DefaultAnswers prefills the form from the default configuration.
func DefaultAnswers() Answers {
	def := config.Default()

	weights := make(map[domain.PerspectiveID]string, len(domain.Perspectives))
	for _, id := range domain.Perspectives {
		weights[id] = formatFloat(def.Engine.Weights[id])
	}

	return Answers{
		Addr:          def.Addr,
		LogLevel:      def.LogLevel,
		Backend:       def.History.Backend,
		Dir:           history.DefaultDir,
		Limit:         strconv.Itoa(def.History.Limit),
		Weights:       weights,
		VetoThreshold: strconv.Itoa(def.Engine.VetoThreshold),
		MaxSize:       formatFloat(def.Engine.MaxSize),
	}
}

// Build turns answers into a validated configuration.
func (a Answers) Build() (config.Config, error) {
	cfg := config.Default()

	if a.Addr != "" {
		cfg.Addr = a.Addr
	}
	if a.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(a.LogLevel)
	}
	if a.Backend != "" {
		cfg.History.Backend = a.Backend
	}
	if cfg.History.Backend != history.BackendMemory {
		cfg.History.Dir = a.Dir
	}

	if raw := strings.TrimSpace(a.Limit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return config.Config{}, errors.Wrapf(config.ErrInvalid, "history limit %q", a.Limit)
		}
		cfg.History.Limit = limit
	}

	for id, raw := range a.Weights {
		if raw == "" {
			continue
		}
		w, err := parseFraction(raw)
		if err != nil {
			return config.Config{}, errors.Wrapf(config.ErrInvalid, "weight for %s: %v", id, err)
		}
		cfg.Engine.Weights[id] = w
	}

	if raw := strings.TrimSpace(a.VetoThreshold); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return config.Config{}, errors.Wrapf(config.ErrInvalid, "veto threshold %q", a.VetoThreshold)
		}
		cfg.Engine.VetoThreshold = v
	}

	if a.MaxSize != "" {
		v, err := parseFraction(a.MaxSize)
		if err != nil {
			return config.Config{}, errors.Wrapf(config.ErrInvalid, "max size: %v", err)
		}
		cfg.Engine.MaxSize = v
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Summary renders the configuration as the wizard shows it before saving.
func Summary(cfg config.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Server: %s\nLog level: %s\n", cfg.Addr, cfg.LogLevel)
	fmt.Fprintf(&b, "History: %s (limit %d)", cfg.History.Backend, cfg.History.Limit)
	if cfg.History.Dir != "" {
		fmt.Fprintf(&b, " in %s", cfg.History.Dir)
	}
	b.WriteString("\nWeights:")
	for _, id := range domain.Perspectives {
		fmt.Fprintf(&b, "\n  %-16s %s", id, formatFloat(cfg.Engine.Weights[id]))
	}
	fmt.Fprintf(&b, "\nVeto at severity >= %d\nMax size: %s\n", cfg.Engine.VetoThreshold, formatFloat(cfg.Engine.MaxSize))

	return lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(b.String())
}

// RunTUI launches the terminal configuration wizard and writes the result to output.
func RunTUI(output string) error {
	if output == "" {
		output = DefaultOutput
	}

	a := DefaultAnswers()
	var confirm bool

	// step 1: welcome
	clearScreen()
	fmt.Println(headerStyle.Render("QUORUM CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Tune how the perspectives reach consensus.\n"))

	fmt.Println(stepStyle.Render("STEP 1: SERVER"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Description("host:port for the HTTP API").
				Value(&a.Addr),
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Info", "info"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&a.LogLevel),
		),
	).Run()
	if err != nil {
		return err
	}

	// history
	clearScreen()
	fmt.Println(headerStyle.Render("QUORUM CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: HISTORY"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Decision history backend").
				Options(
					huh.NewOption("In memory", history.BackendMemory),
					huh.NewOption("JSON file", history.BackendJSON),
					huh.NewOption("Write-ahead log", history.BackendWAL),
				).
				Value(&a.Backend),
			huh.NewInput().
				Title("Retained decisions").
				Value(&a.Limit).
				Validate(validatePositiveInt),
		),
	).Run()
	if err != nil {
		return err
	}

	if a.Backend != history.BackendMemory {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("History directory").
					Value(&a.Dir),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// weights
	clearScreen()
	fmt.Println(headerStyle.Render("QUORUM CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: CONSENSUS"))

	weights := make([]string, len(domain.Perspectives))
	fields := make([]huh.Field, 0, len(domain.Perspectives)+2)
	for i, id := range domain.Perspectives {
		weights[i] = a.Weights[id]
		fields = append(fields, huh.NewInput().
			Title(fmt.Sprintf("Weight: %s", id)).
			Description("Between 0 and 1").
			Value(&weights[i]).
			Validate(validateFraction))
	}
	fields = append(fields,
		huh.NewInput().
			Title("Security veto severity").
			Description(fmt.Sprintf("0..%d, threat severity that forces an emergency exit", domain.MaxThreatSeverity)).
			Value(&a.VetoThreshold).
			Validate(validateSeverity),
		huh.NewInput().
			Title("Max position size").
			Description("Fraction of balance (0-1)").
			Value(&a.MaxSize).
			Validate(validateFraction),
	)

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}
	for i, id := range domain.Perspectives {
		a.Weights[id] = weights[i]
	}

	cfg, err := a.Build()
	if err != nil {
		return err
	}

	// confirmation
	clearScreen()
	fmt.Println(headerStyle.Render("QUORUM CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))
	fmt.Println(Summary(cfg))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return ErrCancelled
	}

	if err := config.Save(cfg, output); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", output)))
	time.Sleep(500 * time.Millisecond)
	return nil
}

func clearScreen() {
	fmt.Print("\033[H\033[2J")
}

func parseFraction(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return 0, fmt.Errorf("must be between 0 and 1")
	}
	return d.InexactFloat64(), nil
}

func validateFraction(s string) error {
	_, err := parseFraction(s)
	return err
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateSeverity(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n < 0 || n > domain.MaxThreatSeverity {
		return fmt.Errorf("must be between 0 and %d", domain.MaxThreatSeverity)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
