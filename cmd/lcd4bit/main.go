package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/awesome-gocui/gocui"
	"github.com/gethiox/lcd4bit/internal/pkg/glyph"
	"github.com/gethiox/lcd4bit/internal/pkg/lcd"
	"github.com/gethiox/lcd4bit/internal/pkg/lcd/sim"
	"github.com/gethiox/lcd4bit/internal/pkg/logger"
	"github.com/gethiox/lcd4bit/internal/pkg/script"
	"github.com/logrusorgru/aurora"
)

var log = logger.GetLogger()

const (
	logBufferSize = 512
	logViewRate   = time.Second / 10
	screenRate    = time.Second / 20
)

var (
	configPath = flag.String("config", "./"+configDir+"/lcd4bit.config", "path to the config file, generated on first run")
	ui         = flag.Bool("ui", false, "engage terminal ui with display preview and logs")
	force256   = flag.Bool("256", false, "force 256 color mode")
	nocolor    = flag.Bool("nocolor", false, "disable color")
	logLevel   = flag.Int("loglevel", 0,
		"logging level, each level enables additional information class (0-3, default: 0)\n"+
			"\navailable options:\n"+
			"0: general info (errors, warnings, initialization)\n"+
			"1: every instruction and data byte sent\n"+
			"2: every change of the bus lines\n"+
			"3: debug",
	)
	silent     = flag.Bool("silent", false, "no output logging")
	scriptPath = flag.String("script", "", "display script to run instead of the one from config")
	watch      = flag.Bool("watch", false, "replay the script every time its file changes")
	noDemo     = flag.Bool("nodemo", false, "do not show the demo text when no script is set")
)

// verbosity maps the -loglevel flag onto the highest logger level shown.
func verbosity(flagLevel int) int {
	switch {
	case flagLevel <= 0:
		return logger.InfoLvl
	case flagLevel == 1:
		return logger.TransferLvl
	case flagLevel == 2:
		return logger.PinsLvl
	default:
		return logger.DebugLvl
	}
}

func handleSigs(wg *sync.WaitGroup, sigs <-chan os.Signal, done <-chan struct{}, cancel func()) {
	defer wg.Done()
	var counter int
	for {
		select {
		case <-done:
			return
		case sig := <-sigs:
			if counter > 0 {
				fmt.Println("Dirty exit")
				os.Exit(1)
			}
			log.Info(fmt.Sprintf("signal received: %v", sig), logger.Debug)
			cancel()
			counter++
		}
	}
}

func runUI(enabled bool, sigs chan os.Signal) (*gocui.Gui, func()) {
	if !enabled {
		return nil, func() {}
	}

	g, err := GetCli()
	if err != nil {
		panic(err)
	}

	var once sync.Once
	closeUI := func() {
		once.Do(g.Close)
	}

	go func() {
		err := g.MainLoop()
		if err != nil && err != gocui.ErrQuit {
			closeUI()
			panic(err)
		}
		// pretend that we received signal when exited from gui
		select {
		case sigs <- syscall.SIGINT:
		default:
		}
	}()

	return g, closeUI
}

func logView(g *gocui.Gui, color bool, logLevel int) {
	au := aurora.NewAurora(color)
	buf := newLogBuffer(logBufferSize)

	ticker := time.NewTicker(logViewRate)
	defer ticker.Stop()

	var dirty bool
	for {
		select {
		case msg, ok := <-logger.Messages:
			if !ok {
				return
			}
			buf.WriteMessage(msg)
			dirty = true
		case <-ticker.C:
			if !dirty {
				continue
			}
			dirty = false
			g.Update(func(g *gocui.Gui) error {
				feeder, err := NewFeeder(g, ViewLogs, logLevel, au)
				if err != nil {
					return nil
				}
				feeder.view.Clear()
				_, y := feeder.view.Size()
				for _, msg := range buf.ReadLastMessages(y) {
					feeder.Write(msg)
				}
				return nil
			})
		}
	}
}

func printLogs(color bool, logLevel int) {
	au := aurora.NewAurora(color)
	for data := range logger.Messages {
		msg, err := unpack(data)
		if err != nil {
			fmt.Printf("%s\n", string(data))
			continue
		}
		m := prepareString(msg, au, -1, logLevel)
		if m != "" {
			fmt.Printf("%s\n", m)
		}
	}
}

func lcdView(ctx context.Context, g *gocui.Gui, screen *sim.Controller, glyphs glyph.Set, au aurora.Aurora) {
	ticker := time.NewTicker(screenRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		lines := renderScreen(screen.Lines(), glyphs, au)
		g.Update(func(g *gocui.Gui) error {
			v, err := g.View(ViewLCD)
			if err != nil {
				return nil
			}
			v.Clear()
			for _, line := range lines {
				fmt.Fprintln(v, line)
			}
			return nil
		})
	}
}

func printScreen(screen *sim.Controller, glyphs glyph.Set, au aurora.Aurora) {
	for _, line := range renderScreen(screen.Lines(), glyphs, au) {
		fmt.Println(line)
	}
}

func run(ctx context.Context, g *gocui.Gui) error {
	err := createConfigDirectoryIfNeeded(".")
	if err != nil {
		return err
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("config: %+v", cfg), logger.Debug)

	hw, err := openBackend(cfg, log)
	if err != nil {
		return fmt.Errorf("cannot open %s backend: %w", cfg.LCD.Backend, err)
	}
	defer func() {
		err := hw.Close()
		if err != nil {
			log.Info(fmt.Sprintf("failed to close backend: %v", err), logger.Warning)
		}
	}()

	sleeper := cfg.Timing.Sleeper()
	display := lcd.New(hw.Port, sleeper, lcd.WithRowPivot(cfg.LCD.RowPivot), lcd.WithLogger(log))
	display.Init()

	var glyphs glyph.Set
	if cfg.Files.Glyphs != "" {
		glyphs, err = glyph.Load(cfg.Files.Glyphs)
		if err != nil {
			return err
		}
		display.LoadCustomCharacters(glyphs.Characters())
		log.Info(fmt.Sprintf("loaded %d custom characters", glyphs.Len()), logger.Info)
	}

	au := aurora.NewAurora(!*nocolor)
	showScreen := func() {}
	if hw.Screen != nil {
		if g != nil {
			go lcdView(ctx, g, hw.Screen, glyphs, au)
		} else if !*silent {
			showScreen = func() { printScreen(hw.Screen, glyphs, au) }
		}
	}

	path := cfg.Files.Script
	if *scriptPath != "" {
		path = *scriptPath
	}

	if path == "" {
		if !*noDemo {
			display.Demo()
			showScreen()
		}
		log.Info("done, halting", logger.Info)
		<-ctx.Done()
		return nil
	}

	runner := script.Runner{Display: display, Sleeper: sleeper, Replace: glyphs.Replace, Log: log}
	play := func() error {
		s, err := script.Load(path)
		if err != nil {
			return err
		}
		log.Info(fmt.Sprintf("running \"%s\" (%d steps)", path, len(s.Steps)), logger.Info)
		err = runner.Run(ctx, s)
		showScreen()
		return err
	}

	err = play()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if !*watch {
			return err
		}
		log.Info(err.Error(), logger.Warning)
	}

	if !*watch {
		log.Info("done, halting", logger.Info)
		<-ctx.Done()
		return nil
	}

	changes, err := script.Watch(ctx, path, log)
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("watching \"%s\" for changes", path), logger.Info)
	for range changes {
		err := play()
		if err != nil && ctx.Err() == nil {
			// keep watching, the next save may fix it
			log.Info(err.Error(), logger.Warning)
		}
	}
	return nil
}

func main() {
	flag.Parse()
	if *force256 {
		os.Setenv("TERM", "xterm-256color")
	}
	level := verbosity(*logLevel)

	var sigs = make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())

	useUI := *ui && !*silent
	g, closeUI := runUI(useUI, sigs)

	var printed = make(chan struct{})
	go func() {
		defer close(printed)
		switch {
		case *silent:
			for range logger.Messages {
			}
		case useUI:
			logView(g, !*nocolor, level)
		default:
			printLogs(!*nocolor, level)
		}
	}()

	wg := sync.WaitGroup{}
	var done = make(chan struct{})
	wg.Add(1)
	go handleSigs(&wg, sigs, done, cancel)

	var code int
	err := run(ctx, g)
	if err != nil {
		log.Info(err.Error(), logger.Error)
		code = 1
	}

	cancel()
	close(done)
	signal.Stop(sigs)
	wg.Wait()
	closeUI()
	if err != nil && useUI {
		// the log view is gone already
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}

	// closing logger can be safely invoked only when all goroutines that may emit logs are done
	close(logger.Messages)
	<-printed

	os.Exit(code)
}
