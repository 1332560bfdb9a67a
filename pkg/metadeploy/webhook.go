/*
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

// Package metadeploy implements the ModelDeployment metacontroller sync
// webhook (spec §4.8): a stateless HTTP handler translating a
// ModelDeployment parent spec into the exact Service+Deployment JSON a
// metacontroller GenericController instance expects back, grounded on
// the original Flask `k8s/controller/controller.py`.
package metadeploy

import (
	"encoding/json"
	"net/http"

	"github.com/golang/glog"
)

// syncRequest is the metacontroller sync-hook request body: parent plus
// its currently observed children (unused here -- this handler is a
// pure function of parent.spec, it never inspects prior children).
type syncRequest struct {
	Parent struct {
		Metadata struct {
			Name      string `json:"name"`
			Namespace string `json:"namespace"`
		} `json:"metadata"`
		Spec struct {
			Image    string `json:"image"`
			Replicas int64  `json:"replicas"`
		} `json:"spec"`
	} `json:"parent"`
	Finalizing bool `json:"finalizing"`
}

// syncResponse is the metacontroller sync-hook response body.
type syncResponse struct {
	Status   map[string]interface{}  `json:"status"`
	Children []map[string]interface{} `json:"children"`
}

// Handler serves POST /sync-model.
type Handler struct{}

// NewHandler returns a ready-to-mount ModelDeployment sync handler.
func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		glog.Warningf("sync-model: decode request: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	name := req.Parent.Metadata.Name
	namespace := req.Parent.Metadata.Namespace
	resp := syncResponse{
		Status: map[string]interface{}{},
		Children: []map[string]interface{}{
			buildService(name, namespace),
			buildDeployment(name, namespace, req.Parent.Spec.Image, req.Parent.Spec.Replicas),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		glog.Errorf("sync-model: encode response: %v", err)
	}
}

// buildService returns the ClusterIP Service exposing port 5000 under
// name "api", bit-exact to spec §6.
func buildService(name, namespace string) map[string]interface{} {
	return map[string]interface{}{
		"kind":       "Service",
		"apiVersion": "v1",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": namespace,
		},
		"spec": map[string]interface{}{
			"ports": []interface{}{
				map[string]interface{}{
					"name":       "api",
					"protocol":   "TCP",
					"port":       int64(5000),
					"targetPort": "api",
				},
			},
			"selector": map[string]interface{}{
				"legion.model-deployment-name": name,
			},
			"type": "ClusterIP",
		},
	}
}

// buildDeployment returns the Deployment with the model container and
// the exact probe configuration from spec §6.
func buildDeployment(name, namespace, image string, replicas int64) map[string]interface{} {
	selector := map[string]interface{}{
		"legion.model-deployment-name": name,
	}
	return map[string]interface{}{
		"kind":       "Deployment",
		"apiVersion": "apps/v1",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": namespace,
			"labels":    selector,
		},
		"spec": map[string]interface{}{
			"replicas": replicas,
			"selector": map[string]interface{}{
				"matchLabels": selector,
			},
			"template": map[string]interface{}{
				"metadata": map[string]interface{}{
					"labels": selector,
				},
				"spec": map[string]interface{}{
					"containers": []interface{}{
						map[string]interface{}{
							"name":  "model",
							"image": image,
							"ports": []interface{}{
								map[string]interface{}{
									"name":          "api",
									"containerPort": int64(5000),
									"protocol":      "TCP",
								},
							},
							"resources": map[string]interface{}{},
							"livenessProbe":  probe(10),
							"readinessProbe": probe(5),
							"imagePullPolicy": "IfNotPresent",
						},
					},
					"terminationGracePeriodSeconds": int64(30),
					"serviceAccountName":            "model",
				},
			},
		},
	}
}

func probe(failureThreshold int64) map[string]interface{} {
	return map[string]interface{}{
		"httpGet": map[string]interface{}{
			"path":   "/healthcheck",
			"port":   int64(5000),
			"scheme": "HTTP",
		},
		"initialDelaySeconds": int64(2),
		"timeoutSeconds":      int64(2),
		"periodSeconds":       int64(10),
		"successThreshold":    int64(1),
		"failureThreshold":    failureThreshold,
	}
}
