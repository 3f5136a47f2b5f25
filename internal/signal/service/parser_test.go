package service

import (
	"errors"
	"testing"

	"signaltrader/internal/signal/entity"
)

func TestClassifyRejectsNoise(t *testing.T) {
	p := NewParser()

	cases := []struct {
		text   string
		reason string
	}{
		{"Лонг BTC 30000, сегодня стрим на Twitch, заходите", "noise"},
		{"Подписывайтесь на канал, скоро анонс", "noise"},
		{"BTC сегодня вырос до 30000 и выглядит интересно", "no keywords"},
		{"Открываю лонг по битку, пока без уровней", "no numbers"},
		{"лонг 30000", "too short"},
	}

	for _, c := range cases {
		ok, reason := p.Classify(c.text)
		if ok {
			t.Fatalf("Classify(%q) = true, want rejection %q", c.text, c.reason)
		}
		if reason != c.reason {
			t.Fatalf("Classify(%q) reason = %q, want %q", c.text, reason, c.reason)
		}
	}
}

func TestParseRussianSignal(t *testing.T) {
	p := NewParser()

	text := "Вход в лонг 30000-30200, стоп 29500, цели: 30500 31000 31500, риск 2%, плечо x20"
	sig, err := p.Parse("msg-1", "INTRADAY", text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if sig.Direction != entity.DirectionLong {
		t.Fatalf("direction = %s, want LONG", sig.Direction)
	}
	if sig.EntryLow != 30000 || sig.EntryHigh != 30200 {
		t.Fatalf("entry zone = [%.2f %.2f], want [30000 30200]", sig.EntryLow, sig.EntryHigh)
	}
	if sig.StopPrice != 29500 {
		t.Fatalf("stop = %.2f, want 29500", sig.StopPrice)
	}
	if len(sig.TakeProfits) != 3 {
		t.Fatalf("take profits = %v, want 3 levels", sig.TakeProfits)
	}
	if sig.TakeProfits[0] != 30500 || sig.TakeProfits[1] != 31000 || sig.TakeProfits[2] != 31500 {
		t.Fatalf("take profits = %v, want [30500 31000 31500]", sig.TakeProfits)
	}
	if sig.RiskPercent != 2 {
		t.Fatalf("risk = %.2f, want 2", sig.RiskPercent)
	}
	if sig.Leverage != 20 {
		t.Fatalf("leverage = %d, want 20", sig.Leverage)
	}
}

func TestParseEnglishSignal(t *testing.T) {
	p := NewParser()

	text := "LONG BTCUSDT entry: 30000 - 30200 stop 29500 targets: 30500, 31000 x10"
	sig, err := p.Parse("msg-2", "", text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if sig.Direction != entity.DirectionLong {
		t.Fatalf("direction = %s, want LONG", sig.Direction)
	}
	if sig.EntryLow != 30000 || sig.EntryHigh != 30200 {
		t.Fatalf("entry zone = [%.2f %.2f], want [30000 30200]", sig.EntryLow, sig.EntryHigh)
	}
	if sig.StopPrice != 29500 {
		t.Fatalf("stop = %.2f, want 29500", sig.StopPrice)
	}
	if len(sig.TakeProfits) != 2 {
		t.Fatalf("take profits = %v, want 2 levels", sig.TakeProfits)
	}
	if sig.Leverage != 10 {
		t.Fatalf("leverage = %d, want 10", sig.Leverage)
	}
}

func TestParseShortSignal(t *testing.T) {
	p := NewParser()

	text := "Открываю шорт 31000, стоп 31400, цель 30200"
	sig, err := p.Parse("msg-3", "SCALPING", text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if sig.Direction != entity.DirectionShort {
		t.Fatalf("direction = %s, want SHORT", sig.Direction)
	}
	if sig.EntryLow != 31000 || sig.EntryHigh != 31000 {
		t.Fatalf("entry zone = [%.2f %.2f], want single price 31000", sig.EntryLow, sig.EntryHigh)
	}
	if sig.StopPrice != 31400 {
		t.Fatalf("stop = %.2f, want 31400", sig.StopPrice)
	}
	if len(sig.TakeProfits) != 1 || sig.TakeProfits[0] != 30200 {
		t.Fatalf("take profits = %v, want [30200]", sig.TakeProfits)
	}
}

func TestParseSignalWithoutStop(t *testing.T) {
	p := NewParser()

	text := "Пробую лонг 30000, цель 30500"
	sig, err := p.Parse("msg-4", "", text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if sig.HasStop() {
		t.Fatalf("HasStop() = true for signal without stop, StopPrice = %.2f", sig.StopPrice)
	}
	if sig.EntryLow != 30000 {
		t.Fatalf("entry = %.2f, want 30000", sig.EntryLow)
	}
}

func TestParseNotASignal(t *testing.T) {
	p := NewParser()

	_, err := p.Parse("msg-5", "", "Всем привет, сегодня обсудим рынок и новости недели")
	if !errors.Is(err, ErrNotASignal) {
		t.Fatalf("err = %v, want ErrNotASignal", err)
	}
}

func TestParseSwappedEntryZone(t *testing.T) {
	p := NewParser()

	text := "Вход в шорт 30200-30000, стоп 30500"
	sig, err := p.Parse("msg-6", "", text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if sig.EntryLow != 30000 || sig.EntryHigh != 30200 {
		t.Fatalf("entry zone = [%.2f %.2f], want normalized [30000 30200]", sig.EntryLow, sig.EntryHigh)
	}
}

func TestParseHomoglyphDirection(t *testing.T) {
	p := NewParser()

	// "лoнг" с латинской o встречается в реальных каналах
	text := "Вход в лoнг 30000, стоп 29500, цель 30500"
	sig, err := p.Parse("msg-7", "", text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if sig.Direction != entity.DirectionLong {
		t.Fatalf("direction = %s, want LONG", sig.Direction)
	}
}
