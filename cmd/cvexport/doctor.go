package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"

	cvexport "github.com/nchhillar/cvexport"
	"github.com/nchhillar/cvexport/internal/resumepage"
)

const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"

	doctorFetchTimeout = 15 * time.Second
)

// errDoctorFailed is returned when any check reports an error.
var errDoctorFailed = errors.New("doctor found problems")

type doctorResult struct {
	Status   string     `json:"status"`
	Chrome   chromeInfo `json:"chrome"`
	Env      envInfo    `json:"environment"`
	Export   exportInfo `json:"export"`
	Static   *checkInfo `json:"static,omitempty"`
	Page     *checkInfo `json:"page,omitempty"`
	Remote   *checkInfo `json:"remote,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	TempWritable  bool   `json:"temp_writable"`
}

type exportInfo struct {
	Mode        string `json:"mode"`
	Format      string `json:"format"`
	Engine      string `json:"engine"`
	Selector    string `json:"selector"`
	RenderLimit int    `json:"render_limit"`
}

type checkInfo struct {
	OK     bool   `json:"ok"`
	Target string `json:"target"`
	Detail string `json:"detail,omitempty"`
}

func newDoctorCmd(a *app) *cobra.Command {
	var (
		jsonOutput bool
		origin     string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check Chrome, configuration and the resume page",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result := a.runDoctor(cmd.Context(), origin)

			if jsonOutput {
				enc := json.NewEncoder(a.env.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(result)
			} else {
				printDoctorResult(a.env.Stdout, result)
			}

			if result.Status == statusErrors {
				return errDoctorFailed
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.BoolVar(&jsonOutput, "json", false, "print results as JSON")
	fs.StringVar(&origin, "origin", "", "also check that <origin><resumePath> serves the container")
	return cmd
}

func (a *app) runDoctor(ctx context.Context, origin string) *doctorResult {
	engine := a.cfg.Browser.Engine
	if engine == "" {
		engine = cvexport.EngineRod
	}
	result := &doctorResult{
		Status: statusReady,
		Env:    envInfo{OS: runtime.GOOS, Arch: runtime.GOARCH},
		Export: exportInfo{
			Mode:        a.cfg.Export.Mode,
			Format:      a.cfg.Export.Format,
			Engine:      engine,
			Selector:    a.cfg.Export.Selector,
			RenderLimit: cvexport.ResolveRenderLimit(a.cfg.Export.MaxConcurrent),
		},
	}

	if a.cfg.Export.Mode == string(cvexport.ModeStatic) {
		a.checkStaticArtifact(ctx, result)
	} else {
		a.checkChrome(result)
	}
	a.checkEnvironment(result)
	checkTemp(result)
	a.checkPage(ctx, result)
	if origin != "" {
		a.checkRemote(ctx, origin, result)
	}

	switch {
	case len(result.Errors) > 0:
		result.Status = statusErrors
	case len(result.Warnings) > 0:
		result.Status = statusWarnings
	}
	return result
}

func (a *app) checkChrome(result *doctorResult) {
	chromePath := a.cfg.Browser.Bin
	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			result.Errors = append(result.Errors, "Chrome/Chromium not found. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}
	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath
	result.Chrome.Sandbox = !a.cfg.Browser.NoSandbox

	out, err := exec.Command(chromePath, "--version").Output() // #nosec G204 -- operator-configured browser path
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get Chrome version: %v", err))
		return
	}
	result.Chrome.Version = strings.TrimSpace(string(out))
}

func (a *app) checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	dynamic := a.cfg.Export.Mode != string(cvexport.ModeStatic)
	if dynamic && (result.Env.Container || result.Env.CI) && !a.cfg.Browser.NoSandbox {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but the Chrome sandbox is enabled. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer returns whether a container is detected and which signal
// gave it away.
func isContainer() (bool, string) {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

func checkTemp(result *doctorResult) {
	tmpDir := os.TempDir()
	probe := filepath.Join(tmpDir, "cvexport-doctor-probe")
	if err := os.WriteFile(probe, []byte("probe"), 0o600); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Temp directory not writable: %s", tmpDir))
		return
	}
	_ = os.Remove(probe)
	result.Env.TempWritable = true
}

func (a *app) checkStaticArtifact(ctx context.Context, result *doctorResult) {
	info := &checkInfo{Target: a.staticLocation()}
	result.Static = info

	st, err := a.store(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Static store unavailable: %v", err))
		info.Detail = err.Error()
		return
	}
	rep, err := checkStatic(ctx, st, a.cfg.Static.Key, a.cfg.Static.MaxSize)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Static artifact not usable: %v", err))
		info.Detail = err.Error()
		return
	}
	info.OK = true
	info.Detail = rep.String()
}

func (a *app) checkPage(ctx context.Context, result *doctorResult) {
	if !a.cfg.Page.Enabled {
		return
	}
	info := &checkInfo{Target: "built-in page"}
	result.Page = info

	page, err := a.buildPage(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Built-in page failed to render: %v", err))
		info.Detail = err.Error()
		return
	}
	if err := resumepage.VerifyContainer(page, a.cfg.Export.Selector); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Built-in page does not match export.selector: %v", err))
		info.Detail = err.Error()
		return
	}
	info.OK = true
	info.Detail = fmt.Sprintf("%d bytes, %s present", len(page), a.cfg.Export.Selector)
}

func (a *app) checkRemote(ctx context.Context, origin string, result *doctorResult) {
	pageURL, err := cvexport.ResumeURL(origin, a.cfg.Export.ResumePath)
	info := &checkInfo{Target: origin}
	result.Remote = info
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		info.Detail = err.Error()
		return
	}
	info.Target = pageURL

	client := &http.Client{Timeout: doctorFetchTimeout}
	if err := resumepage.FetchAndVerify(ctx, client, pageURL, a.cfg.Export.Selector); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Resume page check failed: %v", err))
		info.Detail = err.Error()
		return
	}
	info.OK = true
	info.Detail = a.cfg.Export.Selector + " present in server-rendered HTML"
}

func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "cvexport doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Export")
	fmt.Fprintf(w, "  [OK] Mode: %s, format: %s, engine: %s\n", r.Export.Mode, r.Export.Format, r.Export.Engine)
	fmt.Fprintf(w, "  [OK] Selector: %s\n", r.Export.Selector)
	if r.Export.RenderLimit > 0 {
		fmt.Fprintf(w, "  [OK] Concurrent renders: at most %d\n", r.Export.RenderLimit)
	} else {
		fmt.Fprintln(w, "  [OK] Concurrent renders: unbounded")
	}
	fmt.Fprintln(w)

	if r.Export.Mode != string(cvexport.ModeStatic) {
		fmt.Fprintln(w, "Chrome/Chromium")
		if r.Chrome.Found {
			fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
			if r.Chrome.Version != "" {
				fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
			}
			if r.Chrome.Sandbox {
				fmt.Fprintln(w, "  [OK] Sandbox: enabled")
			} else {
				fmt.Fprintln(w, "  [OK] Sandbox: disabled")
			}
		} else {
			fmt.Fprintln(w, "  [ERROR] Not found")
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	if r.Env.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	for _, c := range []struct {
		title string
		info  *checkInfo
	}{
		{"Static artifact", r.Static},
		{"Resume page", r.Page},
		{"Remote page", r.Remote},
	} {
		if c.info == nil {
			continue
		}
		fmt.Fprintln(w, c.title)
		mark := "[OK]"
		if !c.info.OK {
			mark = "[FAIL]"
		}
		fmt.Fprintf(w, "  %s %s: %s\n", mark, c.info.Target, c.info.Detail)
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to export")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
