// Package export renders download payloads for the report pages. The CSV
// shape follows what spreadsheet imports in pt-BR locales expect: UTF-8
// BOM, semicolon separators, embedded quotes doubled.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"caixa/internal/core"
	"caixa/internal/ledger"
	"caixa/internal/reports"
)

const bom = "\uFEFF"

// LedgerCSV writes the filtered movements as financeiro.csv. Every field,
// header included, is quoted.
func LedgerCSV(w io.Writer, items []core.Movement) error {
	var b strings.Builder
	b.WriteString(bom)
	writeQuotedRow(&b, []string{"Tipo", "Data", "Valor", "Motivo"})
	for _, mv := range items {
		label := "Entrada"
		if mv.Kind == core.Withdrawal {
			label = "Retirada"
		}
		writeQuotedRow(&b, []string{
			label,
			mv.Date.Format(core.DateLayout),
			core.FormatAmount(mv.Amount.Cents),
			mv.Reason,
		})
	}
	return writeOut(w, &b)
}

// ScheduleCSV writes the teacher calendar as escala-professores.csv. The
// header line is plain; data rows are quoted.
func ScheduleCSV(w io.Writer, slots []core.ScheduleSlot) error {
	var b strings.Builder
	b.WriteString(bom)
	b.WriteString("Professor;Data;Lição;Trimestre\n")
	for _, slot := range slots {
		writeQuotedRow(&b, []string{
			slot.Teacher,
			slot.Date.Format(core.DateLayout),
			slot.Lesson,
			slot.Quarter,
		})
	}
	return writeOut(w, &b)
}

// FrequencyCSV writes the attendance summary as relatorio-frequencia.csv.
func FrequencyCSV(w io.Writer, rows []reports.StudentFrequency) error {
	var b strings.Builder
	b.WriteString(bom)
	writeQuotedRow(&b, []string{"Aluno", "Presenças", "Total", "Frequência %"})
	for _, row := range rows {
		writeQuotedRow(&b, []string{
			row.StudentName,
			fmt.Sprintf("%d", row.Present),
			fmt.Sprintf("%d", row.Total),
			fmt.Sprintf("%.1f", row.Frequency),
		})
	}
	return writeOut(w, &b)
}

// LedgerTXT writes the plain-text financial report for the filtered view.
func LedgerTXT(w io.Writer, s ledger.Summary) error {
	var b strings.Builder
	b.WriteString("Relatório Financeiro\n")
	fmt.Fprintf(&b, "Saldo total: R$ %s\n", core.FormatAmount(s.FinalBalance.Cents))
	fmt.Fprintf(&b, "(Entradas: R$ %s - Retiradas: R$ %s)\n",
		core.FormatAmount(s.Total.Cents), core.FormatAmount(s.TotalWithdrawals.Cents))

	b.WriteString("\nEntradas por mês:\n")
	for _, month := range sortedKeys(s.ByMonth) {
		fmt.Fprintf(&b, "%s: R$ %s\n", month, core.FormatAmount(s.ByMonth[month].Cents))
	}

	b.WriteString("\nEntradas por semana:\n")
	for _, week := range sortedKeys(s.ByWeek) {
		fmt.Fprintf(&b, "%s: R$ %s\n", week, core.FormatAmount(s.ByWeek[week].Cents))
	}

	b.WriteString("\nLançamentos detalhados:\n")
	for _, mv := range s.Items {
		sign := ""
		if mv.Kind == core.Withdrawal {
			sign = "-"
		}
		fmt.Fprintf(&b, "%s: %sR$ %s - %s\n",
			mv.Date.Format(core.DateLayout), sign, core.FormatAmount(mv.Amount.Cents), mv.Reason)
	}
	return writeOut(w, &b)
}

func writeQuotedRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

func sortedKeys(m map[string]core.Money) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeOut(w io.Writer, b *strings.Builder) error {
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
