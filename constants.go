package flense

import "time"

const (
	ServiceName    = "flense"
	DefaultBaseURL = "https://api.flense.dev"
	DefaultTimeout = 2 * time.Minute
	APIVersion     = "v1"

	// DefaultPollInterval is the delay between successive status fetches
	// when waiting for a job to reach a terminal state.
	DefaultPollInterval = 1 * time.Second

	// EnvAPIKey is consulted when no key is supplied via WithAPIKey.
	EnvAPIKey = "FLENSE_API_KEY"
)

// API endpoints
const (
	EndpointCreateJob = "/" + APIVersion + "/queue/jobs"
	EndpointParseFile = "/" + APIVersion + "/queue/parse"
	EndpointJob       = "/" + APIVersion + "/queue/jobs/{jobID}"
	EndpointJobEvents = "/" + APIVersion + "/queue/jobs/{jobID}/subscribe"
	EndpointParseSync = "/" + APIVersion + "/flense/"
)

// Event names carried on a job subscription stream.
const (
	EventStatus    = "status"
	EventProgress  = "progress"
	EventContent   = "content"
	EventComplete  = "complete"
	EventFailed    = "failed"
	EventCancelled = "cancelled"
	EventTimeout   = "timeout"
)

// multipartFileField is the form field the queue and sync endpoints read
// binary uploads from.
const multipartFileField = "file"
