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

// Package modeltraining implements the ModelTraining kind's controller
// handler (spec §4.6): resolves the referenced VCS, and emits a
// credential Secret plus a training Pod running the bootstrap protocol.
package modeltraining

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	legionv1 "github.com/legion-platform/legion-operator/apis/legion/v1"
	"github.com/legion-platform/legion-operator/pkg/config"
	"github.com/legion-platform/legion-operator/pkg/controller"
	"github.com/legion-platform/legion-operator/pkg/k8sclient"
	"github.com/legion-platform/legion-operator/pkg/merge"
)

// Handler implements controller.Handler for the ModelTraining kind.
type Handler struct {
	controller.BaseHandler
	client *k8sclient.Client
	config *config.Config
}

// New returns a ModelTraining handler. client is used to resolve the
// VCS a training references -- the only cross-kind read this operator
// performs outside of the generic engine's own children lookup. cfg
// supplies the bootstrap configmap name, the default toolchain image,
// and the toolchain allow-list override (spec §4.9).
func New(client *k8sclient.Client, cfg *config.Config) *Handler {
	h := &Handler{client: client, config: cfg}
	h.OnUpdateFunc = h.onUpdate
	return h
}

// ChildKinds declares the Secret and Pod kinds this controller manages.
func (h *Handler) ChildKinds() []controller.ChildKind {
	return []controller.ChildKind{
		{GVR: k8sclient.GVRSecret, Kind: k8sclient.KindForGVR(k8sclient.GVRSecret)},
		{GVR: k8sclient.GVRPod, Kind: k8sclient.KindForGVR(k8sclient.GVRPod)},
	}
}

func (h *Handler) onUpdate(ctx context.Context, owner *unstructured.Unstructured, observed []merge.Child) (*controller.DesiredState, error) {
	var training legionv1.ModelTraining
	if err := unstructuredToModelTraining(owner, &training); err != nil {
		return failedState("decoding ModelTraining: " + err.Error()), nil
	}

	if !legionv1.IsToolchainAllowed(training.Spec.Toolchain, h.config.SupportedToolchains) {
		return failedState("unsupported toolchain: " + training.Spec.Toolchain), nil
	}
	if !legionv1.IsEntrypointSupported(training.Spec.Toolchain, training.Spec.Entrypoint) {
		return failedState("unsupported entrypoint for toolchain " + training.Spec.Toolchain + ": " + training.Spec.Entrypoint), nil
	}

	vcsObj, err := h.client.Resource(k8sclient.GVRVCS).Get(ctx, training.Namespace, training.Spec.VCS)
	if err != nil {
		return failedState("vcs not found: " + training.Spec.VCS), nil
	}
	var vcs legionv1.VCS
	if err := unstructuredToVCS(vcsObj, &vcs); err != nil {
		return failedState("decoding vcs " + training.Spec.VCS + ": " + err.Error()), nil
	}

	ref := training.Spec.CustomVcsBranch
	if ref == "" {
		ref = vcs.Spec.DefaultRef
	}

	secret := buildGitCredsSecret(training.Name, &vcs, ref)
	pod := buildTrainingPod(&training, &vcs, secret.GetName(), ref, h.config.BootstrapConfigMap, h.config.DefaultToolchainImage)

	desired := &controller.DesiredState{
		Children: []merge.Child{
			{Key: merge.ChildKey{Kind: "Secret", SubName: subNameGitCreds}, Object: secret},
			{Key: merge.ChildKey{Kind: "Pod", SubName: subNameTrainingPod}, Object: pod},
		},
	}

	if status := foldPodStatus(observed); status != nil {
		desired.Status = status
	}

	return desired, nil
}

// foldPodStatus implements the resolved open question from spec §9.1:
// the observed training pod's phase is folded into status.state, fitting
// naturally into the merge's status_patch step.
func foldPodStatus(observed []merge.Child) map[string]interface{} {
	for _, child := range observed {
		if child.Key.Kind != "Pod" || child.Key.SubName != subNameTrainingPod {
			continue
		}
		switch podPhase(child.Object) {
		case "Pending", "Running":
			return map[string]interface{}{"state": string(legionv1.ModelTrainingStateRunning)}
		case "Succeeded":
			return map[string]interface{}{"state": string(legionv1.ModelTrainingStateSucceeded)}
		case "Failed":
			return map[string]interface{}{
				"state":   string(legionv1.ModelTrainingStateFailed),
				"failure": podFailureReason(child.Object),
			}
		}
	}
	return nil
}

func failedState(reason string) *controller.DesiredState {
	return &controller.DesiredState{
		Status: map[string]interface{}{
			"state":   string(legionv1.ModelTrainingStateFailed),
			"failure": reason,
		},
	}
}

func unstructuredToModelTraining(owner *unstructured.Unstructured, out *legionv1.ModelTraining) error {
	out.Name = owner.GetName()
	out.Namespace = owner.GetNamespace()

	spec := legionv1.ModelTrainingSpec{}
	spec.Toolchain, _, _ = unstructured.NestedString(owner.Object, "spec", "toolchain")
	spec.Image, _, _ = unstructured.NestedString(owner.Object, "spec", "image")
	spec.VCS, _, _ = unstructured.NestedString(owner.Object, "spec", "vcs")
	spec.CustomVcsBranch, _, _ = unstructured.NestedString(owner.Object, "spec", "customVcsBranch")
	spec.Entrypoint, _, _ = unstructured.NestedString(owner.Object, "spec", "entrypoint")
	spec.Resources.CPU, _, _ = unstructured.NestedString(owner.Object, "spec", "resources", "cpu")
	spec.Resources.RAM, _, _ = unstructured.NestedString(owner.Object, "spec", "resources", "ram")

	if args, found, _ := unstructured.NestedStringSlice(owner.Object, "spec", "arguments"); found {
		spec.Arguments = args
	}
	if params, found, _ := unstructured.NestedStringMap(owner.Object, "spec", "parameters"); found {
		spec.Parameters = params
	}

	out.Spec = spec
	return nil
}

// unstructuredToVCS mirrors the vcs package's own decoder, which is
// unexported there and so is duplicated here.
func unstructuredToVCS(owner *unstructured.Unstructured, out *legionv1.VCS) error {
	out.Name = owner.GetName()
	out.Namespace = owner.GetNamespace()

	uri, _, err := unstructured.NestedString(owner.Object, "spec", "uri")
	if err != nil {
		return err
	}
	defaultRef, _, err := unstructured.NestedString(owner.Object, "spec", "defaultRef")
	if err != nil {
		return err
	}
	privateKey, _, err := unstructured.NestedString(owner.Object, "spec", "privateKey")
	if err != nil {
		return err
	}

	out.Spec = legionv1.VCSSpec{
		URI:        uri,
		DefaultRef: defaultRef,
		PrivateKey: privateKey,
	}
	return nil
}
