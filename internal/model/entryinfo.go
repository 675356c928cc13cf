package model

import "path"

type EntryKind string

const (
	KindFile      EntryKind = "file"
	KindDirectory EntryKind = "dir"
)

//PathEntry is one dir entry found under either the source or the replica root.
//Path is relative to that root and always slash-separated ("." is the root itself).
type PathEntry struct {
	Path string
	Kind EntryKind
}

func (e PathEntry) IsDir() bool {
	return e.Kind == KindDirectory
}

//Child returns the relative path of the entry named name inside e.
func (e PathEntry) Child(name string) string {
	return JoinRel(e.Path, name)
}

//JoinRel joins relative paths keeping "." as the root marker.
func JoinRel(parent, name string) string {
	if parent == "" || parent == "." {
		return name
	}
	return path.Join(parent, name)
}

//EntryPair holds the same relative path as seen in both trees; a missing side has a nil pointer.
type EntryPair struct {
	Name         string
	Src, Replica *PathEntry
}

func (p EntryPair) OnlyInSource() bool {
	return p.Src != nil && p.Replica == nil
}

func (p EntryPair) OnlyInReplica() bool {
	return p.Src == nil && p.Replica != nil
}

//KindMismatch reports a file in one tree standing where the other tree has a directory.
func (p EntryPair) KindMismatch() bool {
	return p.Src != nil && p.Replica != nil && p.Src.Kind != p.Replica.Kind
}
