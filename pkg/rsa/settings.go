package rsa

import (
	"fmt"

	log "github.com/golang/glog"
)

const generalSection = "General"

// SettingsKey returns the profile section and key of a system parameter.
func SettingsKey(acq Acquisition, info ParamInfo) (section, key string, err error) {
	section = generalSection
	if info.Flags.Has(ParamGate) {
		section = fmt.Sprintf("Gate %d", info.Gate)
	}
	if info.Name == "" {
		return section, fmt.Sprintf("0x%X", uint32(info.ID)), nil
	}
	key = info.Name
	if info.HasGate() {
		name, err := acq.GateName(info.Gate, info.Channel)
		if err != nil {
			return "", "", err
		}
		key = name + "|" + key
	}
	if info.HasChannel() && !info.Flags.Has(ParamChannelSingle) {
		key = fmt.Sprintf("Channel %d|%s", int(info.Channel)+1, key)
	}
	return section, key, nil
}

// ReadWriteSettings moves every system parameter between acq and p. Reading
// applies values through SetParam so clipping and side effects take place.
// Failures of any kind, panics included, are reported as false.
func ReadWriteSettings(acq Acquisition, p Profile, read bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("rsa: settings intercepted panic: %v", r)
			ok = false
		}
	}()

	ok = true
	for _, id := range acq.EnumParamIDs() {
		info, found := acq.ParamInfo(id)
		if !found || !info.Flags.Has(ParamSystem) {
			continue
		}
		section, key, err := SettingsKey(acq, info)
		if err != nil {
			log.Errorf("rsa: settings key for %s: %v", id, err)
			ok = false
			continue
		}
		if read {
			text, err := p.String(section, key, info.Default.String())
			if err != nil {
				log.Errorf("rsa: settings read [%s] %s: %v", section, key, err)
				ok = false
				continue
			}
			if !acq.SetParam(id, StringValue(text), false) {
				ok = false
			}
			continue
		}
		v, found := acq.Param(id)
		if !found {
			ok = false
			continue
		}
		if err := p.SetString(section, key, v.String()); err != nil {
			log.Errorf("rsa: settings write [%s] %s: %v", section, key, err)
			ok = false
		}
	}
	if !read {
		if err := p.Flush(); err != nil {
			log.Errorf("rsa: settings flush: %v", err)
			ok = false
		}
	}
	return ok
}
