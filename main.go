/*
Copyright 2017 Google Inc.
Copyright 2019 The MayaData Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	_ "k8s.io/client-go/plugin/pkg/client/auth/oidc"

	legionv1 "github.com/legion-platform/legion-operator/apis/legion/v1"
	"github.com/legion-platform/legion-operator/pkg/config"
	"github.com/legion-platform/legion-operator/pkg/controller"
	"github.com/legion-platform/legion-operator/pkg/controllers/modeltraining"
	"github.com/legion-platform/legion-operator/pkg/controllers/vcs"
	"github.com/legion-platform/legion-operator/pkg/k8sclient"
	"github.com/legion-platform/legion-operator/pkg/metadeploy"
)

var (
	debugAddr = flag.String(
		"debug-addr",
		":9999",
		"The address to bind the debug/health http endpoints",
	)
	clientConfigPath = flag.String(
		"client-config-path",
		"",
		`Path to kubeconfig file (same format as used by kubectl);
		if not specified, uses in-cluster config`,
	)
	clientGoQPS = flag.Float64(
		"client-go-qps",
		5,
		"Number of queries per second client-go is allowed to make (default 5)",
	)
	clientGoBurst = flag.Int(
		"client-go-burst",
		10,
		"Allowed burst queries for client-go (default 10)",
	)
	configPath = flag.String(
		"config-path",
		config.DefaultPath,
		"Path to the operator's settings YAML file",
	)
)

func main() {
	flag.Parse()

	glog.Infof("Debug/health http server address: %v", *debugAddr)

	cfg, err := config.Load(*configPath)
	if err != nil {
		glog.Fatal(err)
	}
	glog.Infof("Loaded config: bootstrap configmap=%s", cfg.BootstrapConfigMap)

	restConfig, err := buildRestConfig()
	if err != nil {
		glog.Fatal(err)
	}

	client, err := k8sclient.New(restConfig)
	if err != nil {
		glog.Fatal(err)
	}

	vcsController := controller.New("vcs", k8sclient.GVRVCS, legionv1.KindVCS, client, vcs.New())
	trainingController := controller.New("model-training", k8sclient.GVRModelTraining, legionv1.KindModelTraining, client, modeltraining.New(client, cfg))

	ctx, cancel := context.WithCancel(context.Background())
	go vcsController.Run(ctx)
	go trainingController.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/sync-model", metadeploy.NewHandler())
	mux.HandleFunc("/healthz", healthHandler(vcsController, trainingController))
	srv := &http.Server{
		Addr:    *debugAddr,
		Handler: mux,
	}
	go func() {
		glog.Errorf("Error serving http endpoint: %v", srv.ListenAndServe())
	}()

	sigchan := make(chan os.Signal, 2)
	signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigchan
	glog.Infof("Received %q signal. Shutting down...", sig)

	cancel()
	_ = srv.Shutdown(context.Background())
}

func buildRestConfig() (*rest.Config, error) {
	var config *rest.Config
	var err error
	if *clientConfigPath != "" {
		glog.Infof("Using current context from kubeconfig file: %v", *clientConfigPath)
		config, err = clientcmd.BuildConfigFromFlags("", *clientConfigPath)
	} else {
		glog.Info("No kubeconfig file specified: trying in-cluster auto-config")
		config, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, err
	}
	config.QPS = float32(*clientGoQPS)
	config.Burst = *clientGoBurst
	return config, nil
}

// healthHandler reports ready once both controllers have completed
// their first list, mirroring the teacher's debug http.ServeMux pattern
// minus its Prometheus exporter (telemetry is an explicit Non-goal).
func healthHandler(controllers ...*controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, c := range controllers {
			select {
			case <-c.Ready:
			default:
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready: " + c.Name))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
