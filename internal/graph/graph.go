package graph

import (
	"fmt"
	"sort"

	"github.com/zetareticula/modelflow/internal/domain"
)

// Edge — направленная зависимость между стадиями.
//
// Ребро From → To означает: To не начинается, пока From не достигнет
// SUCCEEDED. Для рёбер из decide-стадий Outcome дополнительно требует,
// чтобы From выбрала именно эту ветку; иначе To пропускается.
type Edge struct {
	// From — стадия-предшественник.
	From string

	// To — зависимая стадия.
	To string

	// Outcome — требуемый результат decide-стадии.
	// Пусто — достаточно успешного завершения From.
	Outcome string
}

// Graph — направленный ациклический граф стадий.
//
// Использование: AddStage/AddEdge → Validate → Batches.
// После успешной валидации граф запечатан — стадии и рёбра
// добавить нельзя.
type Graph struct {
	stages map[string]*domain.Stage
	order  []string // порядок добавления, для детерминизма
	edges  []Edge

	incoming map[string][]Edge

	// Вычисляется валидацией.
	batches   [][]string
	ancestors map[string]map[string]bool
	sealed    bool
}

// New создаёт пустой граф.
func New() *Graph {
	return &Graph{
		stages:   make(map[string]*domain.Stage),
		incoming: make(map[string][]Edge),
	}
}

// AddStage добавляет стадию в граф.
func (g *Graph) AddStage(st *domain.Stage) error {
	if g.sealed {
		return ErrGraphSealed
	}
	if st == nil || st.ID == "" {
		return ErrEmptyStageID
	}
	if !st.Kind.Valid() {
		return defErr(st.ID, fmt.Sprintf("unknown kind %q", st.Kind), ErrUnknownKind)
	}
	if _, exists := g.stages[st.ID]; exists {
		return defErr(st.ID, "stage already defined", ErrDuplicateStage)
	}
	if st.Status == "" {
		st.Status = domain.StagePending
	}
	g.stages[st.ID] = st
	g.order = append(g.order, st.ID)
	return nil
}

// AddEdge добавляет зависимость to от from.
// Дубликаты рёбер игнорируются.
func (g *Graph) AddEdge(from, to string) error {
	return g.addEdge(Edge{From: from, To: to})
}

// AddBranchEdge добавляет зависимость to от decide-стадии from,
// требующую конкретного результата ветвления.
func (g *Graph) AddBranchEdge(from, to, outcome string) error {
	return g.addEdge(Edge{From: from, To: to, Outcome: outcome})
}

func (g *Graph) addEdge(e Edge) error {
	if g.sealed {
		return ErrGraphSealed
	}
	if e.From == "" || e.To == "" {
		return ErrEmptyStageID
	}
	for _, existing := range g.incoming[e.To] {
		if existing == e {
			return nil // уже связаны
		}
	}
	g.edges = append(g.edges, e)
	g.incoming[e.To] = append(g.incoming[e.To], e)
	return nil
}

// Validate проверяет корректность графа и вычисляет порядок выполнения.
//
// Проверки:
//   - граф не пуст
//   - рёбра не висячие (обе стадии существуют)
//   - нет зависимости стадии от самой себя
//   - условные рёбра выходят только из decide-стадий
//   - нет циклов (алгоритм Кана)
//
// Успешная валидация запечатывает граф. Повторный вызов — no-op.
func (g *Graph) Validate() error {
	if g.sealed {
		return nil
	}
	if len(g.stages) == 0 {
		return ErrEmptyGraph
	}

	for _, e := range g.edges {
		from, fromOK := g.stages[e.From]
		if !fromOK {
			return defErr(e.To, fmt.Sprintf("depends on unknown stage %q", e.From), ErrDanglingEdge)
		}
		if _, ok := g.stages[e.To]; !ok {
			return defErr(e.From, fmt.Sprintf("edge to unknown stage %q", e.To), ErrDanglingEdge)
		}
		if e.From == e.To {
			return defErr(e.From, "depends on itself", ErrSelfDependency)
		}
		if e.Outcome != "" && from.Kind != domain.KindDecide {
			return defErr(e.From, fmt.Sprintf("outcome %q required from %s stage", e.Outcome, from.Kind), ErrBranchEdgeKind)
		}
	}

	batches, err := g.buildBatches()
	if err != nil {
		return err
	}
	g.batches = batches
	g.ancestors = g.buildAncestors(batches)
	g.sealed = true
	return nil
}

// buildBatches строит уровни топологической сортировки (алгоритм Кана).
// Каждый батч — стадии, все зависимости которых в предыдущих батчах.
// Возвращает ErrCyclicDependency, если обработаны не все стадии.
func (g *Graph) buildBatches() ([][]string, error) {
	inDegree := make(map[string]int, len(g.stages))
	dependents := make(map[string][]string, len(g.stages))
	for _, id := range g.order {
		inDegree[id] = 0
	}
	for _, e := range g.edges {
		inDegree[e.To]++
		dependents[e.From] = append(dependents[e.From], e.To)
	}

	// Текущий фронт — стадии без необработанных зависимостей.
	frontier := make([]string, 0)
	for _, id := range g.order {
		if inDegree[id] == 0 {
			frontier = append(frontier, id)
		}
	}

	var batches [][]string
	processed := 0
	for len(frontier) > 0 {
		sort.Strings(frontier)
		batch := frontier
		frontier = make([]string, 0)

		for _, id := range batch {
			processed++
			for _, dep := range dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					frontier = append(frontier, dep)
				}
			}
		}
		batches = append(batches, batch)
	}

	if processed != len(g.stages) {
		return nil, ErrCyclicDependency
	}
	return batches, nil
}

// buildAncestors строит транзитивное замыкание предков.
// Обходит стадии в топологическом порядке: предки стадии —
// её прямые предшественники плюс все их предки.
func (g *Graph) buildAncestors(batches [][]string) map[string]map[string]bool {
	anc := make(map[string]map[string]bool, len(g.stages))
	for _, batch := range batches {
		for _, id := range batch {
			set := make(map[string]bool)
			for _, e := range g.incoming[id] {
				set[e.From] = true
				for a := range anc[e.From] {
					set[a] = true
				}
			}
			anc[id] = set
		}
	}
	return anc
}

// Batches возвращает топологические батчи выполнения.
// Стадии одного батча независимы и могут выполняться конкурентно.
func (g *Graph) Batches() ([][]string, error) {
	if !g.sealed {
		return nil, ErrNotValidated
	}
	return g.batches, nil
}

// IsAncestor возвращает true, если ancestor — транзитивный
// предшественник stage.
func (g *Graph) IsAncestor(ancestor, stageID string) bool {
	if !g.sealed {
		return false
	}
	return g.ancestors[stageID][ancestor]
}

// Ancestors возвращает множество транзитивных предшественников стадии.
// Пустое множество до валидации.
func (g *Graph) Ancestors(stageID string) map[string]bool {
	out := make(map[string]bool, len(g.ancestors[stageID]))
	for id := range g.ancestors[stageID] {
		out[id] = true
	}
	return out
}

// Incoming возвращает входящие рёбра стадии.
func (g *Graph) Incoming(stageID string) []Edge {
	return g.incoming[stageID]
}

// Stage возвращает стадию по ID (nil, если не найдена).
func (g *Graph) Stage(id string) *domain.Stage {
	return g.stages[id]
}

// Stages возвращает стадии в порядке добавления.
func (g *Graph) Stages() []*domain.Stage {
	out := make([]*domain.Stage, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.stages[id])
	}
	return out
}

// Size возвращает количество стадий.
func (g *Graph) Size() int {
	return len(g.stages)
}

// Validated возвращает true после успешной валидации.
func (g *Graph) Validated() bool {
	return g.sealed
}
