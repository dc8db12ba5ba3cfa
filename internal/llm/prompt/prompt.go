// Package prompt renders the instructions sent to the model for a problem.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/ahrav/examsolve/internal/domain"
)

// System is the role instruction prepended to text prompts.
const System = `당신은 수능 국어 문제를 푸는 전문가입니다.
주어진 지문을 꼼꼼히 읽고, 문제의 의도를 정확히 파악하여 답을 선택하세요.
반드시 선택한 답의 이유를 구체적으로 설명해야 합니다.`

// SystemMultimodal is the role instruction placed before a problem image.
const SystemMultimodal = `당신은 수능 국어 문제를 푸는 전문가입니다.
다음 이미지는 지문, 문제, 선택지를 모두 포함한 수능 국어 문제입니다.
이미지를 꼼꼼히 읽고 답을 선택한 뒤 그 이유를 구체적으로 설명하세요.`

// UserMultimodal follows the problem image.
const UserMultimodal = `위 이미지의 문제를 풀어주세요.

다음 JSON 형식으로 답변하세요:
{
  "choice": 정답번호(1-5),
  "reasoning": "지문의 어떤 부분이 근거가 되는지, 다른 선택지가 왜 틀렸는지 포함해 설명하세요."
}`

var userTemplate = template.Must(template.New("user").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(`다음 수능 국어 문제를 풀어주세요.

[지문]
{{.Paragraph}}

[문제]
{{.Question}}

[보기]
{{.QuestionPlus}}

[선택지]
{{range $i, $c := .Choices}}{{inc $i}}. {{$c}}
{{end}}
다음 JSON 형식으로 답변하세요:
{
  "choice": 정답번호(1-5),
  "reasoning": "왜 이 답을 선택했는지 구체적인 근거를 설명하세요. 지문의 어떤 부분이 근거가 되는지, 다른 선택지가 왜 틀렸는지 포함해주세요."
}
`))

// User renders the problem-specific part of a text prompt.
func User(p domain.Problem) (string, error) {
	data := struct {
		Paragraph    string
		Question     string
		QuestionPlus string
		Choices      []string
	}{
		Paragraph:    p.Paragraph,
		Question:     p.Question,
		QuestionPlus: p.QuestionPlus,
		Choices:      p.Choices,
	}
	if !p.HasQuestionPlus() {
		data.QuestionPlus = domain.NoQuestionPlus
	}

	var sb strings.Builder
	if err := userTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render prompt for problem %d: %w", p.ID, err)
	}
	return sb.String(), nil
}

// Text renders the full single-message prompt for a text problem.
func Text(p domain.Problem) (string, error) {
	user, err := User(p)
	if err != nil {
		return "", err
	}
	return System + "\n\n" + user, nil
}
