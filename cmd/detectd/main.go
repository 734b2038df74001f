// Package main - Detection worker host. Loads the model once at startup,
// then serves inference requests over the bridge until interrupted, or runs
// a single image through the pipeline when -image is given.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lens-ai/go-detect/bridge"
	"github.com/lens-ai/go-detect/config"
	"github.com/lens-ai/go-detect/images"
	"github.com/lens-ai/go-detect/inference"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	imagePath := flag.String("image", "", "run one image through the pipeline and exit")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	manager := inference.NewManager(&inference.ORTEngine{})
	opts := inference.SessionOptions{RuntimeLibPath: cfg.RuntimeLibPath}

	log.WithField("model_path", cfg.ModelPath).Info("loading model")
	if err := manager.Initialize(cfg.ModelPath, opts); err != nil {
		// A failed load leaves nothing to serve. Log, pace the supervisor's
		// restart, and exit so the host comes back with a clean slate.
		log.WithError(err).Error("model initialization failed, restarting host")
		time.Sleep(time.Duration(cfg.RestartDelay))
		os.Exit(1)
	}
	defer manager.Close()
	log.WithField("outputs", manager.OutputNames()).Info("model ready")

	orch := bridge.NewOrchestrator(manager, cfg.InputName)
	client, worker := bridge.Pipe()
	worker.Log = log
	go worker.Serve(orch)
	defer worker.Close()

	if *imagePath != "" {
		if err := runOnce(log, client, *imagePath, cfg.TargetSize); err != nil {
			log.WithError(err).Fatal("detection failed")
		}
		return
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("worker serving")
	sig := <-stop
	log.WithField("signal", sig.String()).Info("shutting down")
}

// runOnce pushes a single image through decode, letterbox and inference.
func runOnce(log *logrus.Logger, client *bridge.Client, path string, targetSize int) error {
	img, err := images.Load(path)
	if err != nil {
		return err
	}

	prepped, err := images.Letterbox(img, targetSize)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"pad_left": prepped.PadLeft,
		"pad_top":  prepped.PadTop,
		"scale":    prepped.Scale,
	}).Info("image preprocessed")

	resp, err := client.Call(&bridge.Request{Tensor: prepped.Tensor, Dims: prepped.Dims})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return errors.Errorf("inference rejected (%s): %s", resp.Error.Kind, resp.Error.Message)
	}

	log.WithFields(logrus.Fields{
		"output_length": resp.OutputLength,
		"output_dims":   resp.OutputDims,
	}).Info("detection complete")
	return nil
}
