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
	"strings"
)

// Intent 用户意图分类结果。分类器输出必须是这四个标签之一。
type Intent string

const (
	// IntentSimplify 用户要求把复杂的法规用通俗语言解释
	IntentSimplify Intent = "simplify"
	// IntentExtractEntities 用户要求从文本中抽取法律实体
	IntentExtractEntities Intent = "extract-entities"
	// IntentCompare 用户要求对比两个或多个法规
	IntentCompare Intent = "compare"
	// IntentGeneralAnswer 默认兜底意图，直接的事实性问答
	IntentGeneralAnswer Intent = "general-answer"
)

// AllIntents 返回全部合法意图，顺序固定
func AllIntents() []Intent {
	return []Intent{IntentSimplify, IntentExtractEntities, IntentCompare, IntentGeneralAnswer}
}

// ParseIntent 解析分类器的原始输出。容忍大小写、空白和反引号包裹，
// 但不做任何模糊匹配：无法识别的标签返回 *ClassificationError。
func ParseIntent(raw string) (Intent, error) {
	label := strings.ToLower(strings.Trim(strings.TrimSpace(raw), "`"))
	for _, it := range AllIntents() {
		if label == string(it) {
			return it, nil
		}
	}
	return "", &ClassificationError{Raw: raw}
}
