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

// Package k8sclient is a thin wrapper over the Kubernetes REST API,
// uniform across built-in and custom resources: list/watch, get,
// create, patch and delete, all keyed by GroupVersionResource. It
// corresponds to the "API Client" component of the reconciliation
// engine: every other package talks to the cluster only through here.
package k8sclient

import (
	"context"

	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/util/retry"
)

// Client is a caller-provided-credentials wrapper over a dynamic
// Kubernetes client. It is safe for concurrent use by multiple
// controller workers, since the underlying client-go HTTP transport is.
type Client struct {
	dynamic dynamic.Interface
}

// New builds a Client from a REST config (in-cluster or kubeconfig-based).
func New(config *rest.Config) (*Client, error) {
	dc, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, errors.Wrap(err, "building dynamic client")
	}
	return &Client{dynamic: dc}, nil
}

// NewForTesting wraps an already-constructed dynamic.Interface, e.g. the
// fake client from k8s.io/client-go/dynamic/fake.
func NewForTesting(dyn dynamic.Interface) *Client {
	return &Client{dynamic: dyn}
}

// Resource returns a handle scoped to one GroupVersionResource.
func (c *Client) Resource(gvr schema.GroupVersionResource) *ResourceClient {
	return &ResourceClient{ri: c.dynamic.Resource(gvr), gvr: gvr}
}

// ResourceClient carries out the four operations list/create/patch/delete
// from spec §4.4 against one kind of object, plus get/patch-status for
// custom resources.
type ResourceClient struct {
	ri  dynamic.NamespaceableResourceInterface
	gvr schema.GroupVersionResource
}

// List returns every object in namespace matching the label selector.
func (r *ResourceClient) List(ctx context.Context, namespace, labelSelector string) ([]unstructured.Unstructured, error) {
	list, err := r.ri.Namespace(namespace).List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s in %q", r.gvr, namespace)
	}
	return list.Items, nil
}

// Watch opens a watch stream from the given resourceVersion. A
// resourceVersion of "" starts a fresh watch at the current state.
func (r *ResourceClient) Watch(ctx context.Context, namespace, resourceVersion string) (watch.Interface, error) {
	w, err := r.ri.Namespace(namespace).Watch(ctx, metav1.ListOptions{ResourceVersion: resourceVersion})
	if err != nil {
		return nil, errors.Wrapf(err, "watching %s in %q", r.gvr, namespace)
	}
	return w, nil
}

// ListWithResourceVersion performs a full list and also returns the
// resourceVersion to resume a watch from, per the list-then-watch
// contract of spec §4.1.
func (r *ResourceClient) ListWithResourceVersion(ctx context.Context, namespace, labelSelector string) ([]unstructured.Unstructured, string, error) {
	list, err := r.ri.Namespace(namespace).List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, "", errors.Wrapf(err, "listing %s in %q", r.gvr, namespace)
	}
	return list.Items, list.GetResourceVersion(), nil
}

// Get fetches a single object by name.
func (r *ResourceClient) Get(ctx context.Context, namespace, name string) (*unstructured.Unstructured, error) {
	obj, err := r.ri.Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Create creates a new object.
func (r *ResourceClient) Create(ctx context.Context, namespace string, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	out, err := r.ri.Namespace(namespace).Create(ctx, obj, metav1.CreateOptions{})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Patch applies a JSON merge patch to an existing object. The caller
// supplies the full desired object; it is sent as the merge patch body.
func (r *ResourceClient) Patch(ctx context.Context, namespace, name string, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	raw, err := obj.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "marshaling patch body")
	}
	out, err := r.ri.Namespace(namespace).Patch(ctx, name, types.MergePatchType, raw, metav1.PatchOptions{})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an object with the given grace period.
func (r *ResourceClient) Delete(ctx context.Context, namespace, name string, graceSeconds int64) error {
	return r.ri.Namespace(namespace).Delete(ctx, name, metav1.DeleteOptions{
		GracePeriodSeconds: &graceSeconds,
	})
}

// PatchStatus merges the given fields into .status of a custom resource,
// retrying on a conflicting concurrent write per retry.DefaultBackoff
// (at most four attempts in all).
func (r *ResourceClient) PatchStatus(ctx context.Context, namespace, name string, status map[string]interface{}) error {
	return retry.RetryOnConflict(retry.DefaultBackoff, func() error {
		current, err := r.Get(ctx, namespace, name)
		if err != nil {
			return err
		}
		merged := current.DeepCopy()
		existing, _, _ := unstructured.NestedMap(merged.Object, "status")
		if existing == nil {
			existing = map[string]interface{}{}
		}
		for k, v := range status {
			existing[k] = v
		}
		if err := unstructured.SetNestedMap(merged.Object, existing, "status"); err != nil {
			return err
		}
		_, err = r.ri.Namespace(namespace).UpdateStatus(ctx, merged, metav1.UpdateOptions{})
		return err
	})
}
