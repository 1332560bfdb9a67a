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

package modeltraining

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	legionv1 "github.com/legion-platform/legion-operator/apis/legion/v1"
)

const (
	subNameGitCreds    = "checkout-secret"
	subNameTrainingPod = "training-pod"

	bootstrapScriptVolume = "bootup"
	dockerSocketVolume    = "docker-socket"
	gitCredsVolume        = "git-checkout-secret"

	metricsEnvDisabled = "false"
)

// buildGitCredsSecret builds the credential Secret a training pod mounts
// to check out its source, per spec §4.6 step 3.
func buildGitCredsSecret(trainingName string, vcs *legionv1.VCS, ref string) *unstructured.Unstructured {
	secret := &unstructured.Unstructured{}
	secret.SetAPIVersion("v1")
	secret.SetKind("Secret")
	secret.SetName(fmt.Sprintf("%s-training-git-creds", trainingName))
	secret.SetAnnotations(map[string]string{
		legionv1.AnnotationURI:        vcs.Spec.URI,
		legionv1.AnnotationDefaultRef: ref,
	})
	_ = unstructured.SetNestedField(secret.Object, map[string]interface{}{
		"key": vcs.Spec.PrivateKey,
	}, "data")
	return secret
}

// buildTrainingPod builds the training pod itself: a single container
// running the bootstrap protocol (spec §4.7), with the Docker socket and
// the bootstrapper script configmap mounted, per spec §4.6 step 3.
// bootstrapConfigMapName and defaultImage come from the operator's
// loaded config (spec §4.9): the former names the configmap actually
// mounted at /bootup, the latter fills in spec.image when a
// ModelTraining leaves it unset.
func buildTrainingPod(training *legionv1.ModelTraining, vcs *legionv1.VCS, gitCredsSecretName, ref, bootstrapConfigMapName, defaultImage string) *unstructured.Unstructured {
	pod := &unstructured.Unstructured{}
	pod.SetAPIVersion("v1")
	pod.SetKind("Pod")
	pod.SetName(fmt.Sprintf("%s-training-pod", training.Name))

	spec := training.Spec
	image := spec.Image
	if image == "" {
		image = defaultImage
	}

	env := []interface{}{
		map[string]interface{}{"name": "GIT_CHECKOUT_REPO_URI", "value": vcs.Spec.URI},
		map[string]interface{}{"name": "GIT_CHECKOUT_REPO_REF", "value": ref},
		map[string]interface{}{"name": "MODEL_TRAIN_METRICS_ENABLED", "value": metricsEnvDisabled},
	}

	container := map[string]interface{}{
		"name":    "training",
		"image":   image,
		"command": []interface{}{"/bin/sh", "-c"},
		"args": []interface{}{
			fmt.Sprintf("python3 /bootup/bootstrapper.py %s %s", spec.Toolchain, spec.Entrypoint),
		},
		"env": env,
		"resources": map[string]interface{}{
			"limits": map[string]interface{}{
				"cpu":    spec.Resources.CPU,
				"memory": spec.Resources.RAM,
			},
			"requests": map[string]interface{}{
				"cpu":    reduceCPUResource(spec.Resources.CPU),
				"memory": reduceMemResource(spec.Resources.RAM),
			},
		},
		"volumeMounts": []interface{}{
			map[string]interface{}{"name": dockerSocketVolume, "mountPath": "/var/run/docker.sock"},
			map[string]interface{}{"name": gitCredsVolume, "mountPath": "/opt/legion/git-creds", "readOnly": true},
			map[string]interface{}{"name": bootstrapScriptVolume, "mountPath": "/bootup", "readOnly": true},
		},
	}

	podSpec := map[string]interface{}{
		"restartPolicy": "Never",
		"containers":    []interface{}{container},
		"volumes": []interface{}{
			map[string]interface{}{
				"name":     dockerSocketVolume,
				"hostPath": map[string]interface{}{"path": "/var/run/docker.sock"},
			},
			map[string]interface{}{
				"name":   gitCredsVolume,
				"secret": map[string]interface{}{"secretName": gitCredsSecretName},
			},
			map[string]interface{}{
				"name":      bootstrapScriptVolume,
				"configMap": map[string]interface{}{"name": bootstrapConfigMapName},
			},
		},
	}

	_ = unstructured.SetNestedMap(pod.Object, podSpec, "spec")
	return pod
}

// podPhase reads .status.phase off an observed Pod, "" if absent.
func podPhase(pod *unstructured.Unstructured) string {
	phase, _, _ := unstructured.NestedString(pod.Object, "status", "phase")
	return phase
}

// podFailureReason reads the first terminated container's reason/message
// off an observed Pod's status, for surfacing onto ModelTraining.status.failure.
func podFailureReason(pod *unstructured.Unstructured) string {
	statuses, found, _ := unstructured.NestedSlice(pod.Object, "status", "containerStatuses")
	if !found {
		return "training pod failed"
	}
	for _, raw := range statuses {
		cs, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		terminated, found, _ := unstructured.NestedMap(cs, "state", "terminated")
		if !found {
			continue
		}
		reason, _, _ := unstructured.NestedString(terminated, "reason")
		message, _, _ := unstructured.NestedString(terminated, "message")
		if message != "" {
			return fmt.Sprintf("%s: %s", reason, message)
		}
		if reason != "" {
			return reason
		}
	}
	return "training pod failed"
}
