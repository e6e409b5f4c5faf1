// Copyright 2025 Scott Friedman
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package format

// Logger is the minimal logging surface the reader/writer accept for
// the "recoverable anomaly: log a warning and continue" fixups
// described through spec §4.5/§4.7. This library never logs to a
// global/package-level logger; embedders that don't wire one get
// NopLogger.
type Logger interface {
	Warnf(format string, args ...any)
}

// NopLogger discards every message. It is the zero-value default for
// any Handler that does not call SetLogger.
type NopLogger struct{}

// Warnf implements Logger by discarding the message.
func (NopLogger) Warnf(string, ...any) {}

// SetLogger attaches l as the handler's warning sink. Passing nil
// restores NopLogger.
func (h *Handler) SetLogger(l Logger) {
	if l == nil {
		l = NopLogger{}
	}
	h.logger = l
}

// Log returns the handler's current warning sink, defaulting to
// NopLogger.
func (h *Handler) Log() Logger {
	if h.logger == nil {
		return NopLogger{}
	}
	return h.logger
}
