package service

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"signaltrader/internal/signal/entity"
)

var (
	// ErrNotASignal текст не прошёл классификацию — это не ошибка разбора,
	// а нормальный отрицательный результат
	ErrNotASignal = errors.New("not a trading signal")
	// ErrParseIncomplete текст похож на сигнал, но обязательное поле не извлечено
	ErrParseIncomplete = errors.New("signal parse incomplete")
)

const minSignalLength = 20

// Parser извлекает TradingSignal из сырого текста алерта.
// Все паттерны компилируются один раз при создании; сам парсер без состояния
// и безопасен для конкурентного использования.
type Parser struct {
	longKeywords  []string
	shortKeywords []string
	noiseKeywords []string

	priceToken    *regexp.Regexp
	entryPatterns []*regexp.Regexp
	stopPatterns  []*regexp.Regexp
	tpPatterns    []*regexp.Regexp
	riskPatterns  []*regexp.Regexp
	levPatterns   []*regexp.Regexp
}

// NewParser создает новый Parser с набором правил, обученным на реальных каналах
func NewParser() *Parser {
	return &Parser{
		longKeywords: []string{
			"вход в лонг", "пробую лонг", "открываю лонг",
			"лонг", "лoнг", "long", "покупка", "buy", "вверх", "рост", "📈",
		},
		shortKeywords: []string{
			"вход в шорт", "пробую шорт", "открываю шорт",
			"шорт", "шoрт", "short", "продажа", "sell", "вниз", "падение", "🔴",
		},
		noiseKeywords: []string{
			"стрим", "twitch", "youtube", "подписывайтесь",
			"реклама", "промо", "конкурс", "приз", "анонс",
		},

		priceToken: regexp.MustCompile(`\d{3,6}`),

		entryPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:пробую|открываю|вход(?:\s+в)?)\s+(?:лонг|шорт|лoнг|шoрт)\s+(\d{3,6}(?:[.,]\d+)?)(?:\s*[-–]\s*(\d{3,6}(?:[.,]\d+)?))?`),
			regexp.MustCompile(`(?i)(?:entry|вход|зона|zone)\s*:?\s*(\d{3,6}(?:[.,]\d+)?)\s*(?:[-–]|to|до)\s*(\d{3,6}(?:[.,]\d+)?)`),
			regexp.MustCompile(`(?i)(?:лонг|шорт|long|short)\s+(?:от\s+)?(\d{3,6}(?:[.,]\d+)?)(?:\s*[-–]\s*(\d{3,6}(?:[.,]\d+)?))?`),
			regexp.MustCompile(`(?i)(\d{3,6}(?:[.,]\d+)?)\s*[-–]\s*(\d{3,6}(?:[.,]\d+)?)\s*(?:лонг|шорт|entry|вход)`),
		},
		stopPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:стоп[-\s]?лосс|стoп|стоп|stop\s*loss|stop|sl|сл)\s*(?:под|над|за|at|:)?\s*(\d{3,6}(?:[.,]\d+)?)`),
			regexp.MustCompile(`(?i)(\d{3,6}(?:[.,]\d+)?)\s*(?:стоп|stop|sl)`),
		},
		tpPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:цели|цель|тейк[-\s]?профит|тейки|тп|take\s*profits?|targets?|tps?)\s*:?\s*((?:\d{3,6}(?:[.,]\d+)?[\s,;/–-]+){1,9}\d{3,6}(?:[.,]\d+)?)`),
			regexp.MustCompile(`(?i)(?:цели|цель|тейк|тп|take\s*profit|target|tp)\s*:?\s*(\d{3,6}(?:[.,]\d+)?)`),
		},
		riskPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:риск(?:ом)?|risk)\s*[:=]?\s*(\d+(?:[.,]\d+)?)\s*%`),
			regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*%\s*(?:риск|risk)`),
		},
		levPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:плечо|леверидж|leverage|lev)\s*[:=]?\s*[xх]?(\d{1,3})`),
			regexp.MustCompile(`(?i)[xх](\d{1,3})(?:\s|$|,|\.)`),
		},
	}
}

// Classify определяет, является ли текст торговым сигналом.
// Возвращает (false, reason) при отказе; любое шумовое слово — немедленный отказ.
func (p *Parser) Classify(text string) (bool, string) {
	lower := strings.ToLower(text)

	for _, kw := range p.noiseKeywords {
		if strings.Contains(lower, kw) {
			return false, "noise"
		}
	}

	hasKeywords := false
	for _, kw := range append(append([]string{}, p.longKeywords...), p.shortKeywords...) {
		if strings.Contains(lower, kw) {
			hasKeywords = true
			break
		}
	}
	if !hasKeywords {
		return false, "no keywords"
	}

	if !p.priceToken.MatchString(text) {
		return false, "no numbers"
	}

	if len([]rune(strings.TrimSpace(text))) <= minSignalLength {
		return false, "too short"
	}

	return true, ""
}

// Parse разбирает текст алерта в TradingSignal.
// ErrNotASignal — текст не прошёл классификацию;
// ErrParseIncomplete — классификация пройдена, но направление не определено.
// Битые числовые подстроки не приводят к панике — они просто не матчатся.
func (p *Parser) Parse(messageID, source, text string) (*entity.TradingSignal, error) {
	if ok, reason := p.Classify(text); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotASignal, reason)
	}

	dir, ok := p.extractDirection(text)
	if !ok {
		return nil, fmt.Errorf("%w: direction", ErrParseIncomplete)
	}

	sig := &entity.TradingSignal{
		MessageID: messageID,
		Source:    source,
		Direction: dir,
		Timestamp: time.Now().UTC(),
		RawText:   text,
	}

	sig.EntryLow, sig.EntryHigh = p.extractEntryZone(text)
	sig.StopPrice = p.extractStop(text)
	sig.TakeProfits = p.extractTakeProfits(text)
	sig.RiskPercent = p.extractRisk(text)
	sig.Leverage = p.extractLeverage(text)

	log.Printf("Parser: signal %s parsed: %s entry=[%.2f %.2f] stop=%.2f tps=%d",
		messageID, dir, sig.EntryLow, sig.EntryHigh, sig.StopPrice, len(sig.TakeProfits))

	return sig, nil
}

// extractDirection ищет ключевые слова направления; списки отсортированы
// от более специфичных фраз к коротким, побеждает первое совпадение
func (p *Parser) extractDirection(text string) (entity.Direction, bool) {
	lower := strings.ToLower(text)

	for _, kw := range p.longKeywords {
		if strings.Contains(lower, kw) {
			return entity.DirectionLong, true
		}
	}
	for _, kw := range p.shortKeywords {
		if strings.Contains(lower, kw) {
			return entity.DirectionShort, true
		}
	}
	return "", false
}

// extractEntryZone возвращает [low, high]; для одиночной цены low == high.
// (0, 0) — вход в тексте не найден.
func (p *Parser) extractEntryZone(text string) (float64, float64) {
	for _, re := range p.entryPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		low := parsePrice(m[1])
		if low <= 0 {
			continue
		}
		high := low
		if len(m) > 2 && m[2] != "" {
			if h := parsePrice(m[2]); h > 0 {
				high = h
			}
		}
		if high < low {
			low, high = high, low
		}
		return low, high
	}
	return 0, 0
}

func (p *Parser) extractStop(text string) float64 {
	for _, re := range p.stopPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return parsePrice(m[1])
		}
	}
	return 0
}

// extractTakeProfits разбирает одиночный уровень или слитный список
// вида "цели: 30500 31000 31500" (от 2 до 10 уровней)
func (p *Parser) extractTakeProfits(text string) []float64 {
	for _, re := range p.tpPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		tokens := p.priceToken.FindAllString(m[1], 10)
		tps := make([]float64, 0, len(tokens))
		for _, tok := range tokens {
			if v := parsePrice(tok); v > 0 {
				tps = append(tps, v)
			}
		}
		if len(tps) > 0 {
			return tps
		}
	}
	return nil
}

func (p *Parser) extractRisk(text string) float64 {
	for _, re := range p.riskPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return parsePrice(m[1])
		}
	}
	return 0
}

func (p *Parser) extractLeverage(text string) int {
	for _, re := range p.levPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil {
				return v
			}
		}
	}
	return 0
}

// parsePrice конвертирует числовую подстроку, запятая трактуется как
// десятичный разделитель; 0 при ошибке
func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}
