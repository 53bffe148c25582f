package rsa

import (
	"strings"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsaid"
)

// ParamFlags describe how a parameter behaves and how it is published.
type ParamFlags uint32

const (
	ParamReadonly ParamFlags = 1 << iota
	ParamEffectsParameter
	ParamEffectsResult
	ParamEffectsData
	ParamChannelSingle
	ParamGate
	ParamMethod
	ParamExport
	// ParamSystem marks parameters persisted in the settings profile.
	ParamSystem
	ParamAlwaysWritable
	ParamAlias
	ParamArchive
	// ParamWriteAtOff parameters are only written while the run mode is off.
	ParamWriteAtOff
)

var paramFlagNames = []string{
	"readonly", "effectsParameter", "effectsResult", "effectsData", "channelSingle",
	"gate", "method", "export", "system", "alwaysWritable", "alias", "archive", "writeAtOff",
}

func (f ParamFlags) Has(m ParamFlags) bool { return f&m != 0 }

func (f ParamFlags) String() string {
	return flagString(uint32(f), paramFlagNames)
}

// ResultFlags describe a result.
type ResultFlags uint32

const (
	ResultGate ResultFlags = 1 << iota
	ResultIndex
	ResultAsync
	ResultAsyncIndex
	ResultHuge
	ResultStored
)

var resultFlagNames = []string{"gate", "index", "async", "asyncIndex", "huge", "stored"}

func (f ResultFlags) Has(m ResultFlags) bool { return f&m != 0 }

func (f ResultFlags) String() string {
	return flagString(uint32(f), resultFlagNames)
}

func flagString(f uint32, names []string) string {
	var parts []string
	for i, name := range names {
		if f&(1<<uint(i)) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// State is a named value offered as a choice for a parameter.
type State struct {
	Name  string
	Value Value
}

// ParamInfo describes a parameter. Channel and Gate hold rsaid.NoChannel and
// rsaid.NoGate when absent.
type ParamInfo struct {
	ID          rsaid.ID
	Channel     uint8
	Gate        uint8
	Index       uint16
	Name        string // pipe separated hierarchy, e.g. "A-scan|Delay"
	Unit        string
	Description string
	Round       Value
	Default     Value
	Minimum     Value
	Maximum     Value
	States      []State
	Flags       ParamFlags
}

// Reset clears the descriptor and fills the components decoded from id.
func (p *ParamInfo) Reset(id rsaid.ID) {
	*p = ParamInfo{
		Channel: id.Channel(),
		Gate:    id.Gate(),
		Index:   id.Index(),
	}
}

func (p *ParamInfo) HasChannel() bool { return p.Channel != rsaid.NoChannel }
func (p *ParamInfo) HasGate() bool    { return p.Gate != rsaid.NoGate }

// AddState appends a named state.
func (p *ParamInfo) AddState(name string, v Value) {
	p.States = append(p.States, State{Name: name, Value: v})
}

// ResultInfo describes a result.
type ResultInfo struct {
	ID          rsaid.ID
	Channel     uint8
	Gate        uint8
	Index       uint16
	Name        string
	Description string
	Bits        int   // significant bits per sample
	WordSize    int   // bytes per sample
	ArraySize   int   // samples per block
	Offset      int64 // value representing zero
	Flags       ResultFlags
}

// Reset clears the descriptor and fills the components decoded from id.
func (r *ResultInfo) Reset(id rsaid.ID) {
	*r = ResultInfo{
		Channel: id.Channel(),
		Gate:    id.Gate(),
		Index:   id.Index(),
	}
}

func (r *ResultInfo) HasChannel() bool { return r.Channel != rsaid.NoChannel }
func (r *ResultInfo) HasGate() bool    { return r.Gate != rsaid.NoGate }

// BufferInfo is a read-only view of a ready result buffer. It is only valid
// for the duration of the notification that produced it.
type BufferInfo struct {
	Buffer       []byte
	Size         int // blocks in Buffer
	BlockBufSize int // bytes per block
	Remain       int // blocks still pending after this one
	Counter      uint32
}

// Reset clears b.
func (b *BufferInfo) Reset() {
	*b = BufferInfo{}
}
