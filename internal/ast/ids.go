package ast

type (
	FileID    uint32
	DeclID    uint32
	TypeRefID uint32
	ExprID    uint32
	StmtID    uint32
	PayloadID uint32
)

const (
	NoFileID    FileID    = 0
	NoDeclID    DeclID    = 0
	NoTypeRefID TypeRefID = 0
	NoExprID    ExprID    = 0
	NoStmtID    StmtID    = 0
)

func (id FileID) IsValid() bool    { return id != NoFileID }
func (id DeclID) IsValid() bool    { return id != NoDeclID }
func (id TypeRefID) IsValid() bool { return id != NoTypeRefID }
func (id ExprID) IsValid() bool    { return id != NoExprID }
func (id StmtID) IsValid() bool    { return id != NoStmtID }
