package core

// IsDuplicate reports whether email, or a non-empty mobile, matches a contact
// in existing. Comparison is exact: no case folding or phone normalization.
func IsDuplicate(existing []Contact, email, mobile string) bool {
	for _, c := range existing {
		if c.Email == email {
			return true
		}
		if mobile != "" && c.Mobile == mobile {
			return true
		}
	}
	return false
}

// identityIndex answers IsDuplicate for a growing set without rescanning it.
// The importer adds each accepted row so later rows of the same file see it.
type identityIndex struct {
	emails  map[string]struct{}
	mobiles map[string]struct{}
}

func newIdentityIndex(existing []Contact) *identityIndex {
	idx := &identityIndex{
		emails:  make(map[string]struct{}, len(existing)),
		mobiles: make(map[string]struct{}, len(existing)),
	}
	for _, c := range existing {
		idx.add(c.Email, c.Mobile)
	}
	return idx
}

func (idx *identityIndex) add(email, mobile string) {
	idx.emails[email] = struct{}{}
	if mobile != "" {
		idx.mobiles[mobile] = struct{}{}
	}
}

func (idx *identityIndex) contains(email, mobile string) bool {
	if _, ok := idx.emails[email]; ok {
		return true
	}
	if mobile == "" {
		return false
	}
	_, ok := idx.mobiles[mobile]
	return ok
}

// checkDuplicate returns a *DuplicateError if the fields collide with idx.
func (idx *identityIndex) checkDuplicate(f ContactFields) error {
	if idx.contains(f.Email, f.Mobile) {
		return &DuplicateError{Email: f.Email, Mobile: f.Mobile}
	}
	return nil
}
