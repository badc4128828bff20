// Package event encodes the JSON payloads published by the node.
//
// Three event kinds are produced, each a single JSON object:
//
//	status:      {"timestamp":165341651,"windowID":"window-0","status":"S00"}
//	error:       {"timestamp":165341651,"windowID":"window-0","error":"E001"}
//	transition:  {"timestamp":165341651,"windowID":"window-0","fromState":0,"toState":1,
//	              "description":{"en":{"properties":{"fromState":"closed","toState":"opened"},
//	                                   "position":{"window":"left","floor":"1","room":"kitchen"}}}}
//
// Buffers are sized from the content being written. A payload larger than
// the encoder limit fails with ErrEncoding; callers then publish the
// fixed-layout Fallback payload instead.
//
// Localized descriptions that are missing from the catalog are omitted
// rather than emitted as null or partial objects.
package event
