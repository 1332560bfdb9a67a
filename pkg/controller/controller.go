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

// Package controller implements the generic custom-resource controller
// engine (spec §4.3): one instance per owner kind, driving one Watch,
// loading owned children by label selector, delegating desired-state
// computation to a Handler, and executing the resulting merge plan.
package controller

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	legionv1 "github.com/legion-platform/legion-operator/apis/legion/v1"
	"github.com/legion-platform/legion-operator/pkg/k8sclient"
	"github.com/legion-platform/legion-operator/pkg/merge"
	resourcewatch "github.com/legion-platform/legion-operator/pkg/watch"
)

// Controller owns reconciliation of one custom-resource kind. It holds
// a reference to the shared API client and the kind-specific handler;
// it never shares mutable state with any other Controller.
type Controller struct {
	Name       string
	OwnerGVR   schema.GroupVersionResource
	OwnerKind  string
	Client     *k8sclient.Client
	Handler    Handler

	// Ready is closed once the owner watch has completed its first
	// list, so a health endpoint can report the controller is live.
	Ready chan struct{}
}

// New constructs a Controller. Call Run to start it.
func New(name string, ownerGVR schema.GroupVersionResource, ownerKind string, client *k8sclient.Client, handler Handler) *Controller {
	return &Controller{
		Name:      name,
		OwnerGVR:  ownerGVR,
		OwnerKind: ownerKind,
		Client:    client,
		Handler:   handler,
		Ready:     make(chan struct{}),
	}
}

// Run drives the reconciliation loop until ctx is cancelled. Events for
// this owner kind are processed strictly serially -- there is no
// intra-kind parallelism, so two reconciles of the same owner never
// race (spec §5). Run returns once the watch channel closes, which
// happens only after ctx is cancelled; watch errors arrive as Error
// events and are logged. A panic while handling an event is not
// recovered here: the controller is level-triggered and safe to restart.
func (c *Controller) Run(ctx context.Context) {
	rw := resourcewatch.New(c.Client.Resource(c.OwnerGVR), c.Name)
	events := rw.Run(ctx)

	first := true
	for event := range events {
		if first {
			close(c.Ready)
			first = false
		}
		c.handleEvent(ctx, event)
	}
}

func (c *Controller) handleEvent(ctx context.Context, event resourcewatch.Event) {
	if event.Kind == resourcewatch.Error {
		glog.Errorf("%s: watch error: %v", c.Name, event.Err)
		return
	}

	owner := event.Object
	var observed []merge.Child
	if uid := string(owner.GetUID()); uid != "" {
		var err error
		observed, err = c.loadObservedChildren(ctx, owner.GetNamespace(), uid)
		if err != nil {
			glog.Warningf("%s: %s/%s: can't load observed children: %v", c.Name, owner.GetNamespace(), owner.GetName(), err)
			return
		}
	}

	var desired *DesiredState
	var err error
	switch event.Kind {
	case resourcewatch.Added:
		desired, err = c.Handler.OnCreate(ctx, owner, observed)
	case resourcewatch.Modified:
		desired, err = c.Handler.OnUpdate(ctx, owner, observed)
	case resourcewatch.Deleted:
		desired, err = c.Handler.OnDelete(ctx, owner, observed)
	default:
		glog.Errorf("%s: unknown event kind %q for %s/%s", c.Name, event.Kind, owner.GetNamespace(), owner.GetName())
		return
	}
	if err != nil {
		glog.Warningf("%s: %s/%s: handler error: %v", c.Name, owner.GetNamespace(), owner.GetName(), err)
		return
	}
	if desired == nil {
		glog.V(4).Infof("%s: %s/%s: handler returned no desired state, skipping", c.Name, owner.GetNamespace(), owner.GetName())
		return
	}

	if err := c.reconcile(ctx, owner, observed, desired); err != nil {
		glog.Warningf("%s: %s/%s: reconcile error: %v", c.Name, owner.GetNamespace(), owner.GetName(), err)
	}
}

// loadObservedChildren lists, for every child kind the handler
// declares, the objects labelled as belonging to this owner.
func (c *Controller) loadObservedChildren(ctx context.Context, namespace, ownerUID string) ([]merge.Child, error) {
	selector := fmt.Sprintf("%s=%s,%s=%s", legionv1.LabelOwnerID, ownerUID, legionv1.LabelOwnerType, c.OwnerKind)

	var out []merge.Child
	for _, ck := range c.Handler.ChildKinds() {
		items, err := c.Client.Resource(ck.GVR).List(ctx, namespace, selector)
		if err != nil {
			return nil, err
		}
		for i := range items {
			item := items[i]
			out = append(out, merge.Child{
				Key: merge.ChildKey{
					Kind:    ck.Kind,
					SubName: item.GetLabels()[legionv1.LabelSubName],
				},
				Object: &item,
			})
		}
	}
	return out, nil
}

func (c *Controller) currentStatus(owner *unstructured.Unstructured) map[string]interface{} {
	status, _, _ := unstructured.NestedMap(owner.Object, "status")
	return status
}

// reconcile computes and applies the merge plan (spec §4.2, §4.4).
// Apply order is status, then deletes, then creates, then updates.
func (c *Controller) reconcile(ctx context.Context, owner *unstructured.Unstructured, observed []merge.Child, desired *DesiredState) error {
	plan, err := merge.Compute(c.currentStatus(owner), desired.Status, observed, desired.Children)
	if err != nil {
		return err
	}
	if plan.IsEmpty() {
		return nil
	}

	if len(plan.StatusPatch) > 0 {
		if err := c.Client.Resource(c.OwnerGVR).PatchStatus(ctx, owner.GetNamespace(), owner.GetName(), plan.StatusPatch); err != nil {
			c.logAPIError("status patch", owner, err)
		}
	}

	for _, child := range plan.Delete {
		client := c.Client.Resource(c.childGVR(child.Key.Kind))
		if err := client.Delete(ctx, child.Object.GetNamespace(), child.Object.GetName(), 0); err != nil {
			c.logAPIError("delete "+child.Key.Kind, owner, err)
		}
	}

	for _, child := range plan.Create {
		prepared, err := c.prepareChild(owner, child)
		if err != nil {
			glog.Warningf("%s: %s/%s: can't prepare %s %q: %v", c.Name, owner.GetNamespace(), owner.GetName(), child.Key.Kind, child.Key.SubName, err)
			continue
		}
		client := c.Client.Resource(c.childGVR(child.Key.Kind))
		ns := prepared.GetNamespace()
		if ns == "" {
			ns = owner.GetNamespace()
		}
		if _, err := client.Create(ctx, ns, prepared); err != nil {
			c.logAPIError("create "+child.Key.Kind, owner, err)
		}
	}

	for _, child := range plan.Update {
		prepared, err := c.prepareChild(owner, child)
		if err != nil {
			glog.Warningf("%s: %s/%s: can't prepare %s %q: %v", c.Name, owner.GetNamespace(), owner.GetName(), child.Key.Kind, child.Key.SubName, err)
			continue
		}
		client := c.Client.Resource(c.childGVR(child.Key.Kind))
		ns := prepared.GetNamespace()
		if ns == "" {
			ns = owner.GetNamespace()
		}
		if _, err := client.Patch(ctx, ns, prepared.GetName(), prepared); err != nil {
			c.logAPIError("update "+child.Key.Kind, owner, err)
		}
	}

	return nil
}

// prepareChild overwrites the five reserved labels on a handler-provided
// desired child and stamps its content hash, per spec §4.2 ("The
// controller unconditionally overwrites the five reserved labels").
func (c *Controller) prepareChild(owner *unstructured.Unstructured, child merge.Child) (*unstructured.Unstructured, error) {
	obj := child.Object.DeepCopy()

	hash, err := merge.ObjectHash(obj)
	if err != nil {
		return nil, err
	}

	labels := obj.GetLabels()
	if labels == nil {
		labels = map[string]string{}
	}
	labels[legionv1.LabelOwnerID] = string(owner.GetUID())
	labels[legionv1.LabelOwnerType] = c.OwnerKind
	labels[legionv1.LabelOwnerName] = owner.GetName()
	labels[legionv1.LabelSubName] = child.Key.SubName
	labels[legionv1.LabelChildRevision] = hash
	obj.SetLabels(labels)

	if obj.GetNamespace() == "" {
		obj.SetNamespace(owner.GetNamespace())
	}
	return obj, nil
}

func (c *Controller) childGVR(kind string) schema.GroupVersionResource {
	for _, ck := range c.Handler.ChildKinds() {
		if ck.Kind == kind {
			return ck.GVR
		}
	}
	return schema.GroupVersionResource{}
}

// logAPIError implements spec §7's error policy: a conflict is expected
// and swallowed at debug level (the next resync reconciles), anything
// else is a warning but never aborts the rest of the plan.
func (c *Controller) logAPIError(op string, owner *unstructured.Unstructured, err error) {
	if apierrors.IsConflict(err) {
		glog.V(4).Infof("%s: %s/%s: %s conflict, will resync: %v", c.Name, owner.GetNamespace(), owner.GetName(), op, err)
		return
	}
	glog.Warningf("%s: %s/%s: %s failed: %v", c.Name, owner.GetNamespace(), owner.GetName(), op, err)
}
