// Copyright 2025 UMH Systems GmbH
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

package sentry

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

type IssueType string

const (
	IssueTypeWarning IssueType = "warning"
	IssueTypeError   IssueType = "error"
	IssueTypeFatal   IssueType = "fatal"
)

// ReportIssue logs err at the level matching issueType and forwards it to
// Sentry when reporting is enabled.
func ReportIssue(err error, issueType IssueType, log *zap.SugaredLogger) {
	ReportIssueWithTags(err, issueType, log, nil)
}

func ReportIssuef(issueType IssueType, log *zap.SugaredLogger, template string, args ...interface{}) {
	ReportIssue(fmt.Errorf(template, args...), issueType, log)
}

// ReportIssueWithTags is ReportIssue with searchable tags, e.g. the collector
// name and the managed resource id.
func ReportIssueWithTags(err error, issueType IssueType, log *zap.SugaredLogger, tags map[string]string) {
	if err == nil {
		return
	}

	if log == nil {
		log = zap.NewNop().Sugar()
	}

	switch issueType {
	case IssueTypeFatal:
		log.Errorf("FATAL: %s", err)
		send(newEvent(sentry.LevelFatal, err, tags))
		sentry.Flush(sentryFlushTimeout)
	case IssueTypeError:
		log.Error(err)
		send(newEvent(sentry.LevelError, err, tags))
	case IssueTypeWarning:
		log.Warn(err)
		send(newEvent(sentry.LevelWarning, err, tags))
	}
}
