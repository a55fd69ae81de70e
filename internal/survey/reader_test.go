package survey

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"exitsurvey/internal/shared/testutil"
)

func TestReadWorkbook_ExportLayout(t *testing.T) {
	header := []string{"", "PS0 Start", norm.NFD.String("Q1 Какой модуль"), "Q2.1 Оценка", "Q2.1 Оценка", "  "}
	data := testutil.ExportWorkbook(t, header,
		[]interface{}{1, "2024-05-01", "Лидерство", 9, 10},
		[]interface{}{2, "2024-05-02", nil, 7.5, "TRUE", "x"},
	)

	tbl, err := ReadWorkbook(bytes.NewReader(data), "export.XLSX")
	require.NoError(t, err)

	assert.Equal(t, []string{"Unnamed: 0", "PS0 Start", "Q1 Какой модуль", "Q2.1 Оценка", "Q2.1 Оценка.1", "Unnamed: 5"}, tbl.Columns())
	require.Equal(t, 2, tbl.Len())

	assert.Equal(t, T("Лидерство"), tbl.At(0, "Q1 Какой модуль"))
	assert.Equal(t, N(9), tbl.At(0, "Q2.1 Оценка"))
	assert.Equal(t, N(10), tbl.At(0, "Q2.1 Оценка.1"))
	assert.Equal(t, E, tbl.At(0, "Unnamed: 5"))

	assert.True(t, tbl.At(1, "Q1 Какой модуль").IsMissing())
	assert.Equal(t, N(7.5), tbl.At(1, "Q2.1 Оценка"))
	assert.Equal(t, N(1), tbl.At(1, "Q2.1 Оценка.1"))
	assert.Equal(t, T("x"), tbl.At(1, "Unnamed: 5"))
}

func TestReadWorkbook_UnsupportedFormat(t *testing.T) {
	for _, name := range []string{"export.ods", "export.xlsm", "export.csv", "export"} {
		_, err := ReadWorkbook(bytes.NewReader(nil), name)
		var ue *UnsupportedFormatError
		require.True(t, errors.As(err, &ue), name)
		assert.Equal(t, name, ue.Name)
		assert.Equal(t, SupportedExtensions, ue.Supported)
	}
}

func TestReadWorkbook_NotAWorkbook(t *testing.T) {
	for _, name := range []string{"export.xlsx", "export.xls"} {
		_, err := ReadWorkbook(bytes.NewReader([]byte("plain text")), name)
		require.Error(t, err, name)
		var ue *UnsupportedFormatError
		assert.False(t, errors.As(err, &ue), "%s is a supported extension", name)
	}
}

func TestCheckFormat(t *testing.T) {
	assert.Equal(t, []string{".xls", ".xlsx"}, SupportedExtensions)
	assert.NoError(t, CheckFormat("export.xls"))
	assert.NoError(t, CheckFormat("EXPORT.XLSX"))
	assert.Error(t, CheckFormat("export.xlsb"))
}

func TestReadWorkbook_MissingTokens(t *testing.T) {
	header := []string{respondentCol, ageCol, "Q7.1 Кейсы"}
	data := testutil.ExportWorkbook(t, header,
		[]interface{}{"Иванов", "NA", "  "},
		[]interface{}{"Петрова", 3, "#N/A"},
		[]interface{}{"n/a", 4, 9},
	)
	tbl, err := ReadWorkbook(bytes.NewReader(data), "export.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []Value{E, N(3), N(4)}, mustColumn(t, tbl, ageCol))
	assert.Equal(t, []Value{E, E, N(9)}, mustColumn(t, tbl, "Q7.1 Кейсы"))
	assert.Equal(t, []Value{T("Иванов"), T("Петрова"), E}, mustColumn(t, tbl, respondentCol))
}

func TestReadWorkbook_NormalizesEndToEnd(t *testing.T) {
	header := []string{"Unnamed: 0", respondentCol, ageCol, "Q7.1 Кейсы", "Q8.1 Отклик", "Q9.1 Поддержка"}
	data := testutil.ExportWorkbook(t, header,
		[]interface{}{0, "Иванов", 2, 9, 8, 10},
		[]interface{}{1, "", 5, 1, 1, 1},
		[]interface{}{2, "Петрова", nil, 8, nil, 9},
	)
	raw, err := ReadWorkbook(bytes.NewReader(data), "export.xlsx")
	require.NoError(t, err)

	out, err := NewNormalizer(DefaultInstrument(), nil).Normalize(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, N(2), out.At(1, ageCol))
	assert.Equal(t, N(8), out.At(1, "Q8.1 Отклик"))
}

func TestWriteWorkbook_RoundTrip(t *testing.T) {
	tbl := mustTable(t, []string{respondentCol, ageCol, "Q7.1 Кейсы", commentsCol},
		[]Value{T("Иванов"), N(2), N(8.25), T("No comments")},
		[]Value{T("Петрова"), N(3), N(10), E},
	)

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, tbl))

	back, err := ReadCanonical(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns(), back.Columns())
	assert.True(t, tbl.Equal(back))
}

func TestWriteWorkbook_RoundTripKeepsTextCells(t *testing.T) {
	tbl := mustTable(t, []string{respondentCol, "Q14.1 Индустрия", commentsCol},
		[]Value{T("42"), N(42), T("7.5")},
		[]Value{T("Петрова"), N(3), T("TRUE")},
	)

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, tbl))

	back, err := ReadCanonical(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, T("42"), back.At(0, respondentCol))
	assert.Equal(t, N(42), back.At(0, "Q14.1 Индустрия"))
	assert.Equal(t, T("7.5"), back.At(0, commentsCol))
	assert.Equal(t, T("TRUE"), back.At(1, commentsCol))
	assert.True(t, tbl.Equal(back))
}
