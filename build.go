//go:build ignore

// build cross-compiles lcd4bit for the supported boards:
//
//	go run build.go -platforms linux-arm-v6,linux-arm64
//	go run build.go -platforms tinygo-arduino
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
)

const (
	hostProject = "./cmd/lcd4bit/"
	mcuProject  = "./cmd/lcd4bit-mcu/"
)

var availableTargets = []target{
	{goos: "linux", goarch: "arm", goarm: "6"}, // Raspberry Pi Zero/1
	{goos: "linux", goarch: "arm", goarm: "7"},
	{goos: "linux", goarch: "arm64"},
	{goos: "linux", goarch: "amd64"}, // sim backend only
	{board: "arduino"},
	{board: "arduino-nano"},
	{board: "arduino-mega2560"},
}

// target is either a GOOS/GOARCH pair for the host binary or a TinyGo board
// for the firmware.
type target struct {
	goos   string
	goarch string
	goarm  string
	board  string
}

func (t *target) String() string {
	switch {
	case t.board != "":
		return fmt.Sprintf("tinygo-%s", t.board)
	case t.goarm != "":
		return fmt.Sprintf("%s-%s-v%s", t.goos, t.goarch, t.goarm)
	default:
		return fmt.Sprintf("%s-%s", t.goos, t.goarch)
	}
}

func (t *target) command(binaryPath string) *exec.Cmd {
	if t.board != "" {
		return exec.Command("tinygo", "build", "-target", t.board, "-o", binaryPath+".hex", mcuProject)
	}

	params := []string{"build", "-o", binaryPath}
	if race {
		params = append(params, "-race")
	}
	params = append(params, hostProject)

	cmd := exec.Command("go", params...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("GOOS=%s", t.goos),
		fmt.Sprintf("GOARCH=%s", t.goarch),
	)
	if t.goarm != "" {
		cmd.Env = append(cmd.Env, fmt.Sprintf("GOARM=%s", t.goarm))
	}
	if cgo {
		cmd.Env = append(cmd.Env, "CGO_ENABLED=1")
	} else {
		cmd.Env = append(cmd.Env, "CGO_ENABLED=0")
	}
	return cmd
}

type buildError struct {
	target         target
	stdout, stderr string
}

func build(target target, basename string, buildErrors chan<- buildError) error {
	var binaryPath = fmt.Sprintf("./builds/%s-%s", basename, target.String())

	cmd := target.command(binaryPath)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		buildErrors <- buildError{
			target: target,
			stdout: stdout.String(),
			stderr: stderr.String(),
		}
	}
	return err
}

var selection, basename string
var cgo, race bool

func init() {
	var targets []string
	for _, target := range availableTargets {
		targets = append(targets, target.String())
	}
	flag.StringVar(&selection, "platforms", "all", fmt.Sprintf(
		"comma-separated target platform list\navailable: %s", strings.Join(targets, ",")),
	)
	flag.StringVar(&basename, "base", "lcd4bit", "base filename for output binaries")
	flag.BoolVar(&cgo, "cgo", false, "cgo")
	flag.BoolVar(&race, "race", false, "include race detector")
	flag.Parse()
}

func main() {
	log.SetFlags(log.Ltime)

	var selectedTargets []target

	if selection != "all" {
		for _, rt := range strings.Split(selection, ",") {
			var found = false
			for _, t := range availableTargets {
				if t.String() == rt {
					selectedTargets = append(selectedTargets, t)
					found = true
					break
				}
			}
			if !found {
				log.Printf("target not found: %s", rt)
				os.Exit(1)
			}
		}
	} else {
		selectedTargets = append(selectedTargets, availableTargets...)
	}

	var selectedTargetsString []string
	for _, t := range selectedTargets {
		selectedTargetsString = append(selectedTargetsString, t.String())
	}
	log.Printf("selected targets: %s", strings.Join(selectedTargetsString, ", "))

	var buildErrors = make(chan buildError, len(selectedTargets))
	var failed = make(chan bool, len(selectedTargets))

	wgBuild := sync.WaitGroup{}
	log.Printf("engaging parallel building for %d targets\n", len(selectedTargets))
	for _, t := range selectedTargets {
		wgBuild.Add(1)
		go func(target target) {
			defer wgBuild.Done()
			log.Printf("building target %s", target.String())
			err := build(target, basename, buildErrors)
			if err != nil {
				log.Printf("building target %s failed: %s", target.String(), err)
				failed <- true
				return
			}
			log.Printf("building target %s success", target.String())
		}(t)
	}

	wgBuild.Wait()
	close(buildErrors)
	close(failed)

	for err := range buildErrors {
		fmt.Printf("\n>>> Failed build: base: %s, target: %s\n", basename, err.target.String())
		if err.stdout != "" {
			fmt.Printf("======== STDOUT ========\n")
			fmt.Printf("%s", err.stdout)
			fmt.Printf("========================\n")
		}
		if err.stderr != "" {
			fmt.Printf("======== STDERR ========\n")
			fmt.Printf("%s", err.stderr)
			fmt.Printf("========================\n")
		}
	}

	if len(failed) > 0 {
		os.Exit(1)
	}
}
