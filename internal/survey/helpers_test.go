package survey

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	respondentCol = "Q16  - 🔴 Укажите  фамилию и имя"
	ageCol        = "Q15 🔴  Укажите ваш  возраст"
	npsCol        = "Q12.1  - 🔴  Готовы ли вы порекомендовать программу своим друзьям/коллегам?"
	commentsCol   = "Q10 Оставьте ваши  пожелания и дополнительные комментарии  по программе"
)

var (
	N = Number
	T = Text
	E = Empty
)

func mustTable(t *testing.T, columns []string, rows ...[]Value) *Table {
	t.Helper()
	tbl, err := NewTable(columns, rows)
	require.NoError(t, err)
	return tbl
}

func mustColumn(t *testing.T, tbl *Table, name string) []Value {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %q", name)
	return col
}

func numbered(id string, n int, text string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s.%d %s %d", id, i+1, text, i+1)
	}
	return out
}

// canonicalColumns lists one column set that satisfies every question of the
// default instrument.
func canonicalColumns() []string {
	cols := []string{respondentCol, ageCol}
	cols = append(cols, numbered("Q2", 3, "Оценка")...)
	cols = append(cols, numbered("Q3", 10, "PILO")...)
	cols = append(cols, "Q4.1 Каковы, на ваш взгляд,  сильные и слабые стороны программы? - Сильные стороны")
	cols = append(cols, numbered("Q5", 7, "Дизайн")...)
	cols = append(cols, numbered("Q6", 3, "Преподаватель")...)
	cols = append(cols, numbered("Q7", 4, "Модуль")...)
	cols = append(cols, numbered("Q8", 2, "Команда")...)
	cols = append(cols, numbered("Q9", 4, "Группа")...)
	cols = append(cols, commentsCol)
	cols = append(cols,
		"Q11.1 В качестве приглашенного спикера",
		"Q11.1.O В качестве приглашенного спикера - брендинг, корпфин",
		"Q11.2 В качестве ментора",
		"Q11.3 На мероприятиях для выпускников",
		"Q11.4 В адмиссии",
		"Q11.5 Другое",
		"Q11.5.O Другое - протагонист кейса",
	)
	cols = append(cols, npsCol)
	cols = append(cols, "Q13.1 Топ-менеджер", "Q13.2 Специалист", "Q13.3 Предприниматель", "Q13.6.O Другое - Other")
	cols = append(cols, "Q14.1 Индустрия", "Q14.20.O Другое - Other")
	return cols
}

func defaultCell(column string, row int) Value {
	switch {
	case column == respondentCol:
		return T(fmt.Sprintf("Респондент %d", row+1))
	case column == ageCol:
		return N(3)
	case strings.Contains(column, ".O "), strings.HasPrefix(column, "Q4."), column == commentsCol:
		return T("No comments")
	case MatchesQuestion(column, "Q6"):
		return T("Никто")
	case MatchesQuestion(column, "Q11"), MatchesQuestion(column, "Q13"):
		return N(0)
	case MatchesQuestion(column, "Q14"):
		return N(9)
	case column == npsCol:
		return N(9)
	default:
		return N(8)
	}
}

// canonical builds an n-respondent canonical table with default answers,
// replacing whole columns from overrides. Override keys may be a column name
// or a unique name prefix.
func canonical(t *testing.T, n int, overrides map[string][]Value) *Table {
	t.Helper()
	cols := canonicalColumns()
	resolved := make(map[string][]Value, len(overrides))
	for key, vals := range overrides {
		require.Len(t, vals, n, "override %q", key)
		var match []string
		for _, c := range cols {
			if c == key || strings.HasPrefix(c, key+" ") {
				match = append(match, c)
			}
		}
		require.Len(t, match, 1, "override %q must match one column", key)
		resolved[match[0]] = vals
	}

	rows := make([][]Value, n)
	for i := range rows {
		row := make([]Value, len(cols))
		for j, c := range cols {
			if vals, ok := resolved[c]; ok {
				row[j] = vals[i]
			} else {
				row[j] = defaultCell(c, i)
			}
		}
		rows[i] = row
	}
	return mustTable(t, cols, rows...)
}

func without(t *testing.T, tbl *Table, drop func(string) bool) *Table {
	t.Helper()
	out, err := tbl.selectColumns(func(name string) bool { return !drop(name) })
	require.NoError(t, err)
	return out
}
