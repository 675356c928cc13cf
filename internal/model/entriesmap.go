package model

import (
	"path"
	"sort"
)

//DirEntriesMap holds the entries of one directory level of the source and replica file trees.
//A key in this map is the entry's base name, and a value is this entry's info in both trees.
//It lives for the duration of one directory comparison, so it needs no locking.
type DirEntriesMap struct {
	eMap map[string]EntryPair
}

func NewDirEntriesMap() *DirEntriesMap {
	return &DirEntriesMap{eMap: make(map[string]EntryPair, 10)}
}

func (m *DirEntriesMap) SetSrc(e PathEntry) {
	m.updateValueByKey(path.Base(e.Path), func(p *EntryPair) { p.Src = &e })
}

func (m *DirEntriesMap) SetReplica(e PathEntry) {
	m.updateValueByKey(path.Base(e.Path), func(p *EntryPair) { p.Replica = &e })
}

func (m *DirEntriesMap) updateValueByKey(key string, valueUpdater func(*EntryPair)) {
	entry := m.eMap[key] // entry's zero value will be fine as well
	entry.Name = key
	valueUpdater(&entry)
	m.eMap[key] = entry
}

func (m *DirEntriesMap) Len() int {
	return len(m.eMap)
}

//Pairs returns the entries sorted by name, so that the produced actions are deterministic.
func (m *DirEntriesMap) Pairs() []EntryPair {
	keys := make([]string, 0, len(m.eMap))
	for k := range m.eMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]EntryPair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, m.eMap[k])
	}
	return pairs
}
