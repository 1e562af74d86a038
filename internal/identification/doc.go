// Package identification recognizes which movie a video file contains.
//
// Recognition combines two signals. Path hints tokenize the file and parent
// directory names, strip release noise, and locate the release year. When an
// LLM is configured its answer is preferred, cross-checked against the path
// hints; otherwise the cleaned path serves as the candidate. Recognition
// always yields exactly one candidate per video.
package identification
