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

// Package vcs implements the VCS kind's controller handler (spec §4.5):
// it is deliberately minimal, turning one VCS resource into one Secret
// that training pods mount for repository access.
package vcs

import (
	"context"
	"encoding/base64"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	legionv1 "github.com/legion-platform/legion-operator/apis/legion/v1"
	"github.com/legion-platform/legion-operator/pkg/controller"
	"github.com/legion-platform/legion-operator/pkg/k8sclient"
	"github.com/legion-platform/legion-operator/pkg/merge"
)

// subNameCredentials is the sole child this handler produces.
const subNameCredentials = "credentials"

// Handler implements controller.Handler for the VCS kind.
type Handler struct {
	controller.BaseHandler
}

// New returns a VCS handler ready to register with a Controller.
func New() *Handler {
	h := &Handler{}
	h.OnUpdateFunc = h.onUpdate
	return h
}

// ChildKinds declares the single Secret kind this controller manages.
func (h *Handler) ChildKinds() []controller.ChildKind {
	return []controller.ChildKind{
		{GVR: k8sclient.GVRSecret, Kind: k8sclient.KindForGVR(k8sclient.GVRSecret)},
	}
}

// onUpdate emits one Secret named after the owning VCS resource,
// carrying the URI and default ref as annotations and the private key
// (already base64-encoded in the spec) as the Secret's binary payload.
func (h *Handler) onUpdate(ctx context.Context, owner *unstructured.Unstructured, observed []merge.Child) (*controller.DesiredState, error) {
	var vcs legionv1.VCS
	if err := unstructuredToVCS(owner, &vcs); err != nil {
		return nil, errors.Wrap(err, "decoding VCS owner")
	}

	// Spec's privateKey is already the base64 form a Kubernetes Secret's
	// data map expects; validate it decodes, but store it verbatim.
	if vcs.Spec.PrivateKey != "" {
		if _, err := base64.StdEncoding.DecodeString(vcs.Spec.PrivateKey); err != nil {
			return nil, errors.Wrap(err, "decoding privateKey")
		}
	}

	secret := &unstructured.Unstructured{}
	secret.SetAPIVersion("v1")
	secret.SetKind("Secret")
	secret.SetName(vcs.Name)
	secret.SetAnnotations(map[string]string{
		legionv1.AnnotationURI:        vcs.Spec.URI,
		legionv1.AnnotationDefaultRef: vcs.Spec.DefaultRef,
	})
	if err := unstructured.SetNestedField(secret.Object, map[string]interface{}{
		"key": vcs.Spec.PrivateKey,
	}, "data"); err != nil {
		return nil, errors.Wrap(err, "setting secret data")
	}

	return &controller.DesiredState{
		Children: []merge.Child{
			{
				Key:    merge.ChildKey{Kind: "Secret", SubName: subNameCredentials},
				Object: secret,
			},
		},
	}, nil
}

// unstructuredToVCS extracts the fields the handler needs, rather than a
// full runtime.DefaultUnstructuredConverter round-trip -- the handler
// only ever reads spec and metadata.name.
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
