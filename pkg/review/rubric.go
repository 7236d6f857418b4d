package review

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pario-ai/modelbench/pkg/models"
)

// Rubrics are the reviewer system prompts per task. Reviewers are asked to
// answer with "分數:" and "評語:" lines, which ParseScore understands.
var Rubrics = map[string]string{
	models.TaskTranslate: `你是專業的翻譯評審專家。請根據以下標準對翻譯結果評分（1-10分）：

評分標準：
- 通順性（1-3分）：翻譯是否自然流暢，符合中文表達習慣
- 準確性（1-3分）：是否有翻譯錯誤、遺漏或誤解
- 遵循指令（1-2分）：是否完全遵循指令，以繁體中文回覆
- 專業術語處理（1-2分）：英文專業術語是否適當保留

請以以下格式回覆：
分數: [1-10的整數]
評語: [簡短評語，說明評分理由]`,

	models.TaskSummarize: `你是專業的摘要評審專家。請根據以下標準對摘要結果評分（1-10分）：

評分標準：
- 重點涵蓋（1-3分）：重要議題和關鍵成果是否有提及
- 表達清楚（1-3分）：摘要是否條理分明、易於理解
- 遵循指令（1-2分）：是否完全遵循指令，以繁體中文回覆
- 簡潔性（1-2分）：是否避免冗餘，切中要點

請以以下格式回覆：
分數: [1-10的整數]
評語: [簡短評語，說明評分理由]`,
}

// outputLabels name the candidate output in the review prompt.
var outputLabels = map[string]string{
	models.TaskTranslate: "翻譯結果",
	models.TaskSummarize: "摘要結果",
}

const userPromptTemplate = `原文：
{{.Original}}

{{.Label}}：
{{.Output}}

請評分並給出評語。`

var userTmpl = template.Must(template.New("review").Parse(userPromptTemplate))

// UserPrompt renders the review request for one candidate output.
func UserPrompt(taskID, original, output string) (string, error) {
	label, ok := outputLabels[taskID]
	if !ok {
		return "", fmt.Errorf("no rubric for task %q", taskID)
	}

	var buf bytes.Buffer
	err := userTmpl.Execute(&buf, struct {
		Original string
		Label    string
		Output   string
	}{original, label, output})
	if err != nil {
		return "", fmt.Errorf("render review prompt: %w", err)
	}
	return buf.String(), nil
}
