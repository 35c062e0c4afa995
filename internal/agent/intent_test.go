// Copyright 2026 fanjia1024
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

package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	cases := []struct {
		raw  string
		want Intent
	}{
		{"simplify", IntentSimplify},
		{"extract-entities", IntentExtractEntities},
		{"compare", IntentCompare},
		{"general-answer", IntentGeneralAnswer},
		{"  Simplify \n", IntentSimplify},
		{"`compare`", IntentCompare},
		{"GENERAL-ANSWER", IntentGeneralAnswer},
	}
	for _, c := range cases {
		got, err := ParseIntent(c.raw)
		require.NoError(t, err, "raw=%q", c.raw)
		assert.Equal(t, c.want, got, "raw=%q", c.raw)
	}
}

func TestParseIntentUnrecognized(t *testing.T) {
	for _, raw := range []string{"joke", "eli5", "simplify it for me", ""} {
		_, err := ParseIntent(raw)
		require.Error(t, err, "raw=%q", raw)

		var clsErr *ClassificationError
		require.True(t, errors.As(err, &clsErr), "raw=%q", raw)
		assert.Equal(t, raw, clsErr.Raw)
	}
}

func TestValidatePrompts(t *testing.T) {
	require.NoError(t, validatePrompts())
}

func TestRenderIntentPrompt(t *testing.T) {
	history := "user: what is the Clean Air Act?"
	for _, it := range AllIntents() {
		got, err := renderIntentPrompt(it, history)
		require.NoError(t, err, "intent=%s", it)
		assert.Contains(t, got, history, "intent=%s", it)
		assert.False(t, strings.Contains(got, historyPlaceholder), "intent=%s", it)
	}

	_, err := renderIntentPrompt(Intent("joke"), history)
	assert.Error(t, err)
}

func TestRenderClassifierPrompt(t *testing.T) {
	got := renderClassifierPrompt("compare CCPA and GDPR")
	assert.Contains(t, got, "compare CCPA and GDPR")
	assert.False(t, strings.Contains(got, queryPlaceholder))
}
