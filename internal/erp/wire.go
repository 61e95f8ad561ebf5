package erp

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rmazzini/erp-approvals/internal/domain"
)

// Upstream payload shapes. Field names follow the backend's REST contract,
// mixed-case Protheus style included.

type documentsEnvelope struct {
	Documentos []wireDocument `json:"documentos"`
}

type wireDocument struct {
	Filial string         `json:"filial"`
	Numero string         `json:"numero"`
	Tipo   string         `json:"tipo"`
	Total  float64        `json:"valor_total"`
	Itens  []wireItem     `json:"itens"`
	Alcada []wireApprover `json:"alcada"`
}

type wireItem struct {
	Item       string  `json:"item"`
	Produto    string  `json:"produto"`
	Descricao  string  `json:"descricao"`
	Quantidade float64 `json:"quantidade"`
	PrecoUnit  float64 `json:"preco_unitario"`
	Total      float64 `json:"total"`
}

type wireApprover struct {
	Aprovador     string `json:"aprovador_aprov"`
	Situacao      string `json:"situacao_aprov"`
	Nome          string `json:"CNOME"`
	Identificador string `json:"CIDENTIFICADOR"`
	Nivel         string `json:"nivel_aprov"`
	Observacao    string `json:"observacao_aprov"`
}

func (wd wireDocument) toDomain() domain.Document {
	doc := domain.Document{
		ID:     wd.Numero,
		Kind:   domain.Kind(strings.TrimSpace(wd.Tipo)),
		Branch: wd.Filial,
		Total:  wd.Total,
	}

	for _, wi := range wd.Itens {
		doc.Items = append(doc.Items, domain.LineItem{
			Item:        wi.Item,
			Product:     wi.Produto,
			Description: wi.Descricao,
			Quantity:    wi.Quantidade,
			UnitPrice:   wi.PrecoUnit,
			Total:       wi.Total,
		})
	}
	if doc.Total == 0 {
		for _, it := range doc.Items {
			doc.Total += it.Total
		}
	}

	roster := make([]domain.RosterEntry, 0, len(wd.Alcada))
	for _, wa := range wd.Alcada {
		roster = append(roster, domain.RosterEntry{
			Level:       wa.Nivel,
			ApproverID:  strings.TrimSpace(wa.Aprovador),
			Identifier:  strings.TrimSpace(wa.Identificador),
			DisplayName: strings.TrimSpace(wa.Nome),
			State:       entryState(wa.Situacao),
			Remarks:     wa.Observacao,
		})
	}
	// Upstream does not guarantee alcada order; nivel_aprov is the sequence.
	sort.SliceStable(roster, func(i, j int) bool {
		return lessLevel(roster[i].Level, roster[j].Level)
	})
	doc.Roster = roster

	return doc
}

// lessLevel orders level codes numerically when both parse, so an unpadded
// "2" precedes "10". Non-numeric codes fall back to string comparison.
func lessLevel(a, b string) bool {
	na, errA := strconv.Atoi(strings.TrimSpace(a))
	nb, errB := strconv.Atoi(strings.TrimSpace(b))
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

func entryState(situacao string) domain.EntryState {
	switch strings.ToLower(strings.TrimSpace(situacao)) {
	case "liberado":
		return domain.EntryApproved
	case "rejeitado":
		return domain.EntryRejected
	default:
		// "Pendente" and anything unrecognized: a pending entry is the
		// conservative read, it blocks every later level.
		return domain.EntryPending
	}
}

type actionPayload struct {
	Tipo       string `json:"TIPO"`
	Documento  string `json:"DOCUMENTO"`
	Aprovador  string `json:"APROVADOR"`
	Status     string `json:"STATUS"`
	Observacao string `json:"OBSERVACAO"`
}
