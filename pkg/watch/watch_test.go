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

package watch

import (
	"context"
	"testing"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	k8swatch "k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/legion-platform/legion-operator/pkg/k8sclient"
)

var testGVR = schema.GroupVersionResource{
	Group: "legion.legion-platform.org", Version: "v1", Resource: "vcss",
}

// TestRun_RelistsAfterResourceExpiredWatchError exercises the watch
// resilience invariant: a watch.Error event carrying a resourceVersion-
// too-old status must not be surfaced as a fatal Error event -- it must
// trigger a fresh list-then-watch cycle instead.
func TestRun_RelistsAfterResourceExpiredWatchError(t *testing.T) {
	vcs := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "legion.legion-platform.org/v1",
		"kind":       "VCS",
		"metadata": map[string]interface{}{
			"name":      "v1",
			"namespace": "default",
		},
	}}

	scheme := runtime.NewScheme()
	listKinds := map[schema.GroupVersionResource]string{testGVR: "VCSList"}
	dyn := fake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds, vcs)

	watcher := k8swatch.NewFake()
	dyn.PrependWatchReactor("vcss", k8stesting.DefaultWatchReactor(watcher, nil))

	client := k8sclient.NewForTesting(dyn)
	rw := New(client.Resource(testGVR), "vcs")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := rw.Run(ctx)

	select {
	case ev := <-events:
		if ev.Kind != Added {
			t.Fatalf("expected the initial relist's synthetic ADDED event, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the initial relist event")
	}

	watcher.Error(&metav1.Status{
		Status: metav1.StatusFailure,
		Reason: metav1.StatusReasonExpired,
		Code:   410,
	})

	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event channel closed instead of relisting after an expired-resourceVersion watch error")
		}
		if ev.Kind == Error {
			t.Fatalf("an expired-resourceVersion watch error must not be forwarded as a fatal Error event, got %+v", ev)
		}
		if ev.Kind != Added {
			t.Fatalf("expected a relist ADDED event after the expired watch error, got %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a relist after the expired-resourceVersion watch error")
	}
}

// TestForward_GenericWatchErrorIsForwardedAndSignalsRelist covers the
// non-expired error branch: forward still reports a non-recoverable
// result (false, causing watchFrom to relist) but, unlike the expired
// case, does emit an Error event downstream so the caller can log it.
func TestForward_GenericWatchErrorIsForwardedAndSignalsRelist(t *testing.T) {
	rw := &ResourceWatch{name: "vcs"}
	out := make(chan Event, 1)

	ok := rw.forward(context.Background(), out, k8swatch.Event{
		Type: k8swatch.Error,
		Object: &metav1.Status{
			Status:  metav1.StatusFailure,
			Reason:  metav1.StatusReasonInternalError,
			Message: "boom",
		},
	})
	if ok {
		t.Fatal("expected forward to return false for a watch error event")
	}

	select {
	case ev := <-out:
		if ev.Kind != Error {
			t.Fatalf("expected an Error event, got %+v", ev)
		}
	default:
		t.Fatal("expected a generic (non-expired) watch error to be forwarded downstream")
	}
}
