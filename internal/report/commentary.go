package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"covidprj/internal/model"
	"covidprj/internal/pipeline"
)

// StaticCommentary é o texto fixo impresso ao fim de cada execução.
const StaticCommentary = `--- Resumo do projeto ---
Esta análise oferece uma visão geral da pandemia de COVID-19.

Principais observações (com base nos gráficos gerados):
1. Tendências globais: picos e vales nos novos casos e mortes diários no mundo, e o avanço contínuo da vacinação.
2. Comparação entre países: quais países foram mais afetados em casos e mortes, e a evolução diária nos países selecionados.
3. Impacto geográfico: os mapas mostram a distribuição desigual de casos, mortes e vacinação pelo mundo.
4. Correlações: os gráficos de dispersão sugerem relações como a ligação (esperada) entre idade mediana e letalidade, e a relação (menos direta) entre rigor das medidas e novos casos.

Análises futuras podem incluir:
- Ondas ou períodos específicos da pandemia.
- O impacto de intervenções específicas.
- Modelos preditivos de tendências futuras.
- Aprofundamento em dados e fatores locais de cada país.`

const narratorPrompt = `
Você é um analista de dados de saúde pública.
Escreva um comentário curto (no máximo 6 frases) em português sobre a pandemia de COVID-19
usando EXCLUSIVAMENTE os números do CONTEXTO. Não invente valores nem datas.
Se a série global estiver ausente, não comente tendências globais.
`

// Narrator pede ao modelo da OpenAI um comentário a partir dos números calculados.
type Narrator struct {
	Client *openai.Client
	Model  string
	Log    *zap.SugaredLogger
}

func NewNarrator(apiKey, model string, log *zap.SugaredLogger) *Narrator {
	return &Narrator{Client: openai.NewClient(apiKey), Model: model, Log: log}
}

// Narrate envia os fatos e devolve o texto gerado.
func (n *Narrator) Narrate(ctx context.Context, facts string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: narratorPrompt},
		{Role: openai.ChatMessageRoleSystem, Content: "CONTEXTO:\n" + facts},
		{Role: openai.ChatMessageRoleUser, Content: "Escreva o comentário."},
	}

	// Estimativa média: 1 token ~= 4 caracteres
	n.Log.Debugf("[LLM] Enviando ~%d tokens estimados", (len(narratorPrompt)+len(facts))/4)

	resp, err := n.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       n.Model,
		Messages:    messages,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to call LLM: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Commentary devolve o comentário narrado quando n não é nil; qualquer falha
// cai no texto estático.
func Commentary(ctx context.Context, n *Narrator, res *pipeline.Result, topN int) string {
	if n == nil {
		return StaticCommentary
	}
	text, err := n.Narrate(ctx, Facts(res, topN))
	if err != nil || text == "" {
		n.Log.Warnf("[LLM] Comentário indisponível, usando texto estático: %v", err)
		return StaticCommentary
	}
	return text
}

// Facts resume os números do run em texto para o prompt.
func Facts(res *pipeline.Result, topN int) string {
	var sb strings.Builder
	if first, last, ok := res.Countries.DateRange(); ok {
		fmt.Fprintf(&sb, "Período: %s a %s\n", first.Format(model.DateLayout), last.Format(model.DateLayout))
	}
	fmt.Fprintf(&sb, "Países: %d\n", len(res.Snapshot))

	if p, ok := res.World.Latest(); ok && res.WorldErr == nil {
		fmt.Fprintf(&sb, "Mundo em %s: casos totais %.0f, mortes totais %.0f, média 7 dias de novos casos %.0f, média 7 dias de novas mortes %.0f, doses aplicadas %.0f\n",
			p.Date.Format(model.DateLayout), p.TotalCases, p.TotalDeaths,
			p.NewCasesSmoothed7Day, p.NewDeathsSmoothed7Day, p.TotalVaccinations)
	} else {
		sb.WriteString("Série global: indisponível\n")
	}

	for _, metric := range []model.Column{model.ColTotalCases, model.ColTotalDeaths, model.ColFullyVaccinatedPerHundred} {
		top := TopN(res.Snapshot, metric, topN)
		parts := make([]string, len(top))
		for i := range top {
			parts[i] = fmt.Sprintf("%s (%.2f)", top[i].Location, top[i].Metric(metric))
		}
		fmt.Fprintf(&sb, "Top %d por %s: %s\n", topN, metric, strings.Join(parts, ", "))
	}
	return sb.String()
}
