// Copyright 2025 Joseph Cumines
//
// Role taxonomy and derived interactability

package uitree

// ElementType is a closed category in the element-type taxonomy. Each type
// maps to a set of underlying accessibility role tags; TypeAny is the union
// of every known role.
type ElementType string

// The closed element-type set.
const (
	TypeAny        ElementType = "any"
	TypeButton     ElementType = "button"
	TypeTextField  ElementType = "textfield"
	TypeCheckbox   ElementType = "checkbox"
	TypeRadio      ElementType = "radio"
	TypeSlider     ElementType = "slider"
	TypeLink       ElementType = "link"
	TypeMenu       ElementType = "menu"
	TypeMenuItem   ElementType = "menuitem"
	TypeTable      ElementType = "table"
	TypeList       ElementType = "list"
	TypeImage      ElementType = "image"
	TypeStaticText ElementType = "statictext"
	TypeWindow     ElementType = "window"
)

// typeRoles maps each concrete element type to its underlying role tags.
var typeRoles = map[ElementType][]string{
	TypeButton:     {"AXButton", "AXPopUpButton", "AXMenuButton", "AXDisclosureTriangle"},
	TypeTextField:  {"AXTextField", "AXTextArea", "AXSearchField", "AXComboBox"},
	TypeCheckbox:   {"AXCheckBox"},
	TypeRadio:      {"AXRadioButton"},
	TypeSlider:     {"AXSlider", "AXIncrementor"},
	TypeLink:       {"AXLink"},
	TypeMenu:       {"AXMenu", "AXMenuBar"},
	TypeMenuItem:   {"AXMenuItem", "AXMenuBarItem"},
	TypeTable:      {"AXTable", "AXOutline"},
	TypeList:       {"AXList"},
	TypeImage:      {"AXImage"},
	TypeStaticText: {"AXStaticText"},
	TypeWindow:     {"AXWindow", "AXSheet", "AXDrawer"},
}

// KnownType reports whether t is a member of the closed taxonomy.
func KnownType(t ElementType) bool {
	if t == TypeAny {
		return true
	}
	_, ok := typeRoles[t]
	return ok
}

// RolesFor returns the role tags for a concrete type, or every known role
// for TypeAny. The returned slice must not be modified.
func RolesFor(t ElementType) []string {
	if t != TypeAny {
		return typeRoles[t]
	}
	var all []string
	for _, roles := range typeRoles {
		all = append(all, roles...)
	}
	return all
}

// TypeMatches reports whether role belongs to t. TypeAny matches every
// role, including roles outside the taxonomy.
func TypeMatches(t ElementType, role string) bool {
	if t == TypeAny {
		return true
	}
	for _, r := range typeRoles[t] {
		if r == role {
			return true
		}
	}
	return false
}

// Role sets backing the derived capability flags. These mirror the flag
// derivation the bridge applies when an element does not expose an explicit
// action set.
var (
	clickableRoles = map[string]bool{
		"AXButton": true, "AXPopUpButton": true, "AXMenuButton": true,
		"AXMenuItem": true, "AXMenuBarItem": true, "AXLink": true,
		"AXCheckBox": true, "AXRadioButton": true, "AXDisclosureTriangle": true,
	}
	editableRoles = map[string]bool{
		"AXTextField": true, "AXTextArea": true, "AXSearchField": true,
		"AXComboBox": true,
	}
	toggleableRoles = map[string]bool{
		"AXCheckBox": true, "AXRadioButton": true, "AXDisclosureTriangle": true,
	}
	selectableRoles = map[string]bool{
		"AXMenuItem": true, "AXMenuBarItem": true, "AXRow": true, "AXCell": true,
	}
	adjustableRoles = map[string]bool{
		"AXSlider": true, "AXIncrementor": true, "AXScrollBar": true,
	}
)

// Clickable reports whether the node can be pressed.
func (n *Node) Clickable() bool {
	return clickableRoles[n.Role] || n.SupportsAction("AXPress")
}

// Editable reports whether the node accepts text input.
func (n *Node) Editable() bool {
	return editableRoles[n.Role] || n.SupportsAction("AXConfirm")
}

// Toggleable reports whether the node has a togglable state.
func (n *Node) Toggleable() bool {
	return toggleableRoles[n.Role]
}

// Selectable reports whether the node can be selected.
func (n *Node) Selectable() bool {
	return selectableRoles[n.Role] || n.SupportsAction("AXPick")
}

// Adjustable reports whether the node's value can be incremented or
// decremented.
func (n *Node) Adjustable() bool {
	return adjustableRoles[n.Role] ||
		(n.SupportsAction("AXIncrement") && n.SupportsAction("AXDecrement"))
}

// Interactable reports whether the node supports any user interaction:
// clickable, editable, toggleable, selectable or adjustable.
func (n *Node) Interactable() bool {
	return n.Clickable() || n.Editable() || n.Toggleable() ||
		n.Selectable() || n.Adjustable()
}

// menuContextRoles are the roles that establish a menu context for their
// descendants.
var menuContextRoles = map[string]bool{
	"AXMenu": true, "AXMenuBar": true, "AXMenuItem": true, "AXMenuBarItem": true,
}

// MenuContextRole reports whether role places its subtree in a menu
// context.
func MenuContextRole(role string) bool { return menuContextRoles[role] }
