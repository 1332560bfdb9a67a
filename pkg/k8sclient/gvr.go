package k8sclient

import (
	"k8s.io/apimachinery/pkg/runtime/schema"

	legionv1 "github.com/legion-platform/legion-operator/apis/legion/v1"
)

// The operator only ever talks to a fixed, small set of resource kinds,
// so (unlike the teacher's live API-discovery cache) a static table is
// enough: the two custom resources this operator owns, and the handful
// of built-in child kinds its controllers create. Service and
// Deployment are deliberately absent here: the ModelDeployment webhook
// (pkg/metadeploy) only ever returns their desired-state JSON to the
// external metacontroller that invokes it, which applies them itself --
// this operator's own client never issues a Service/Deployment CRUD
// call.
var (
	GVRVCS = schema.GroupVersionResource{
		Group: legionv1.GroupName, Version: legionv1.Version, Resource: "vcss",
	}
	GVRModelTraining = schema.GroupVersionResource{
		Group: legionv1.GroupName, Version: legionv1.Version, Resource: "model-trainings",
	}
	GVRSecret = schema.GroupVersionResource{
		Group: "", Version: "v1", Resource: "secrets",
	}
	GVRPod = schema.GroupVersionResource{
		Group: "", Version: "v1", Resource: "pods",
	}
)

// KindForGVR names the Kind matching a GVR registered above, used by the
// handlers to name their declared child kinds (the Kind half of a merge
// key).
func KindForGVR(gvr schema.GroupVersionResource) string {
	switch gvr {
	case GVRVCS:
		return legionv1.KindVCS
	case GVRModelTraining:
		return legionv1.KindModelTraining
	case GVRSecret:
		return "Secret"
	case GVRPod:
		return "Pod"
	default:
		return ""
	}
}
