// Package format renders metric values for display.
package format

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter prints amounts in a fixed currency and locale.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// NewFormatter returns a Formatter for the given currency code and locale
// tag, e.g. "BRL" and "pt-BR".
func NewFormatter(code, locale string) (*Formatter, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, err
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, err
	}
	return &Formatter{
		printer: message.NewPrinter(tag),
		unit:    unit,
	}, nil
}

// BRL formats Brazilian real amounts in Brazilian Portuguese, the way the
// source dataset is priced.
func BRL() *Formatter {
	return &Formatter{
		printer: message.NewPrinter(language.BrazilianPortuguese),
		unit:    currency.BRL,
	}
}

func (f *Formatter) Currency(amount float64) string {
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(amount)))
}

func (f *Formatter) Number(v float64, decimals int) string {
	return f.printer.Sprintf("%.*f", decimals, v)
}

func (f *Formatter) Int(v int) string {
	return f.printer.Sprintf("%d", v)
}
