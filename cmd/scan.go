package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/darkhz/blescan/discovery"
	"github.com/darkhz/blescan/ui/config"
)

// pollInterval is how often the scan progress is refreshed.
const pollInterval = 100 * time.Millisecond

// scanOnly runs a single scan without the interface, and prints the discovered devices.
// If a device is configured to be connected to, the connection attempt is awaited as well.
func scanOnly(ctx context.Context, service *discovery.Service, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub := service.Subscribe()
	defer sub.Unsubscribe()

	if err := service.StartScan(); err != nil {
		return err
	}

	bar := progressbar.NewOptions64(
		cfg.Values.ScanTimeoutDuration.Milliseconds(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Scanning for devices"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionThrottle(pollInterval),
		progressbar.OptionClearOnFinish(),
	)

	var scanErr error

	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scanErr = watchNotices(sub, done)
		return nil
	})

	g.Go(func() error {
		defer close(done)

		err := waitForScan(gctx, service, bar)
		bar.Finish()

		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	snapshot := service.Snapshot()
	printConnection(snapshot)
	printDevices(snapshot)

	return scanErr
}

// waitForScan updates the progress bar until the scan completes.
// If the context is cancelled, the scan is stopped early.
func waitForScan(ctx context.Context, service *discovery.Service, bar *progressbar.ProgressBar) error {
	t := time.NewTicker(pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return service.StopScan()

		case <-t.C:
		}

		snapshot := service.Snapshot()
		if snapshot.Settled() {
			return nil
		}

		switch {
		case snapshot.ScanState == discovery.ScanScanning:
			bar.Describe("Scanning for devices (" + strconv.Itoa(len(snapshot.Devices)) + " found)")
			bar.Set64(min(time.Since(snapshot.StartedAt), snapshot.Deadline.Sub(snapshot.StartedAt)).Milliseconds())

		case snapshot.Connecting != "":
			bar.Describe("Connecting to " + snapshot.Connecting)

		default:
			bar.Describe("Connecting")
		}
	}
}

// watchNotices prints connection failures, and returns the last scan error
// once the scan has completed.
func watchNotices(sub *discovery.Subscription, done <-chan struct{}) error {
	var scanErr error

	handle := func(notice discovery.Notice) {
		switch {
		case errors.Is(notice.Err, discovery.ErrScan):
			scanErr = notice.Err

		case notice.Kind == discovery.NoticeError:
			fmt.Fprintln(os.Stderr)
			printWarn(notice.Message)
		}
	}

	for {
		select {
		case <-done:
			// Notices published right before completion may still be in flight.
			for {
				select {
				case notice, ok := <-sub.Notices:
					if !ok {
						return scanErr
					}

					handle(notice)

				case <-time.After(pollInterval):
					return scanErr
				}
			}

		case notice, ok := <-sub.Notices:
			if !ok {
				return scanErr
			}

			handle(notice)
		}
	}
}

// printConnection prints the established connection, if any.
func printConnection(snapshot discovery.Snapshot) {
	if !snapshot.Connection.IsConnected() {
		return
	}

	device := snapshot.ConnectedDevice
	if device.ID == "" {
		device.ID = snapshot.Connection.DeviceID
	}

	color.New(color.FgGreen).Println("[+] Connected to " + device.Label() + " (" + device.ID + ")")
}

// printDevices prints the discovered devices in their display order.
func printDevices(snapshot discovery.Snapshot) {
	if len(snapshot.Devices) == 0 {
		printWarn("No devices found")
		return
	}

	named := color.New(color.FgGreen, color.Bold)
	unnamed := color.New(color.Faint)
	connected := color.New(color.FgCyan, color.Bold)

	fmt.Printf("Found %d device(s):\n", len(snapshot.Devices))
	for _, device := range snapshot.Devices {
		line := "- " + device.Label() + " (" + device.ID + ")"

		switch {
		case snapshot.Connection.DeviceID == device.ID:
			connected.Println(line + " [connected]")

		case device.Named():
			named.Println(line)

		default:
			unnamed.Println(line)
		}
	}
}
