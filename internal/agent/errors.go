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
	"fmt"
)

// ClassificationError 分类器输出了枚举之外的标签。
// 该错误发生在生成阶段之前，本轮不会调用生成模型。
type ClassificationError struct {
	// Raw 模型返回的原始标签文本
	Raw string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("agent: 无法识别的意图标签 %q", e.Raw)
}

// ErrToolRoundsExceeded 工具往返达到上限后模型仍请求工具调用，本轮以此错误终止。
var ErrToolRoundsExceeded = errors.New("agent: tool call rounds exceeded, unable to produce a final answer")
