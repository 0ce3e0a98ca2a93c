// Package adminui implements the interactive admin TUI using Bubble Tea.
package adminui

import (
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/huntiep/valentine/internal/adminapi"
)

// state represents the current screen in the admin UI.
type state int

const (
	stateLogin state = iota
	stateUsers
	stateNewUser
	stateKeys
	stateRepos
)

// Model holds all UI state for the admin TUI.
type Model struct {
	client *adminapi.Client
	addr   string

	st  state
	err string

	pass textinput.Model

	users   []adminapi.User
	userLst list.Model

	newUsername textinput.Model
	newPassword textinput.Model
	newEmail    textinput.Model

	keys    []adminapi.SSHKey
	keyLst  list.Model
	addKey  textinput.Model
	addName textinput.Model

	repos   []adminapi.Repo
	repoLst list.Model
}

// New constructs a UI model and initializes inputs and lists.
func New(client *adminapi.Client, addr string) Model {
	pass := textinput.New()
	pass.Placeholder = "Admin password"
	pass.EchoMode = textinput.EchoPassword
	pass.Focus()
	pass.Prompt = "Password: "

	userLst := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	userLst.Title = "Users"

	keyLst := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	keyLst.Title = "SSH Keys"

	repoLst := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	repoLst.Title = "Repositories"

	m := Model{client: client, st: stateLogin, pass: pass, userLst: userLst, keyLst: keyLst, repoLst: repoLst}
	m.addr = redactAddr(addr)

	m.newUsername = textinput.New()
	m.newUsername.Placeholder = "username"
	m.newUsername.Prompt = "Username: "
	m.newPassword = textinput.New()
	m.newPassword.Placeholder = "password"
	m.newPassword.EchoMode = textinput.EchoPassword
	m.newPassword.Prompt = "Password: "
	m.newEmail = textinput.New()
	m.newEmail.Placeholder = "optional"
	m.newEmail.Prompt = "Email: "

	m.addKey = textinput.New()
	m.addKey.Placeholder = "ssh-ed25519 AAAA..."
	m.addKey.Prompt = "Public key: "
	m.addName = textinput.New()
	m.addName.Placeholder = "optional"
	m.addName.Prompt = "Name: "

	return m
}

// Init returns the initial command for the Bubble Tea runtime.
func (m Model) Init() tea.Cmd {
	return nil
}

type errMsg string
type usersMsg []adminapi.User
type keysMsg []adminapi.SSHKey
type reposMsg []adminapi.Repo
type okMsg struct{}

// Update routes messages based on UI state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.userLst.SetSize(msg.Width-4, msg.Height-8)
		m.keyLst.SetSize(msg.Width-4, msg.Height-10)
		m.repoLst.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	case errMsg:
		m.err = string(msg)
		return m, nil
	case usersMsg:
		m.users = []adminapi.User(msg)
		items := make([]list.Item, 0, len(m.users))
		for _, u := range m.users {
			items = append(items, userItem(u))
		}
		m.userLst.SetItems(items)
		m.err = ""
		return m, nil
	case keysMsg:
		m.keys = []adminapi.SSHKey(msg)
		items := make([]list.Item, 0, len(m.keys))
		for _, k := range m.keys {
			items = append(items, keyItem(k))
		}
		m.keyLst.SetItems(items)
		m.err = ""
		return m, nil
	case reposMsg:
		m.repos = []adminapi.Repo(msg)
		items := make([]list.Item, 0, len(m.repos))
		for _, r := range m.repos {
			items = append(items, repoItem{r})
		}
		m.repoLst.SetItems(items)
		m.err = ""
		return m, nil
	case okMsg:
		m.err = ""
		if m.st == stateLogin {
			m.st = stateUsers
			return m, refreshUsersCmd(m.client)
		}
		return m, nil
	}

	switch m.st {
	case stateLogin:
		var cmd tea.Cmd
		m.pass, cmd = m.pass.Update(msg)
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "enter":
				pw := m.pass.Value()
				m.pass.SetValue("")
				return m, tea.Batch(cmd, loginCmd(m.client, pw))
			case "ctrl+c", "q":
				return m, tea.Quit
			}
		}
		return m, cmd

	case stateUsers:
		var cmd tea.Cmd
		m.userLst, cmd = m.userLst.Update(msg)
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "q", "ctrl+c":
				return m, tea.Quit
			case "r":
				return m, refreshUsersCmd(m.client)
			case "n":
				m.st = stateNewUser
				m.err = ""
				m.newUsername.SetValue("")
				m.newPassword.SetValue("")
				m.newEmail.SetValue("")
				m.newUsername.Focus()
				return m, nil
			case "d":
				u, ok := m.selectedUser()
				if !ok {
					return m, nil
				}
				return m, tea.Batch(deleteUserCmd(m.client, u.ID), refreshUsersCmd(m.client))
			case "k":
				u, ok := m.selectedUser()
				if !ok {
					return m, nil
				}
				m.st = stateKeys
				m.err = ""
				m.addKey.SetValue("")
				m.addName.SetValue("")
				m.addKey.Focus()
				return m, refreshKeysCmd(m.client, u.ID)
			case "g":
				u, ok := m.selectedUser()
				if !ok {
					return m, nil
				}
				m.st = stateRepos
				m.err = ""
				return m, refreshReposCmd(m.client, u.ID)
			}
		}
		return m, cmd

	case stateNewUser:
		return m.updateNewUser(msg)
	case stateKeys:
		return m.updateKeys(msg)
	case stateRepos:
		return m.updateRepos(msg)
	default:
		return m, nil
	}
}

// View renders the current screen as a string.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString("Valentine admin")
	if m.addr != "" {
		b.WriteString(" (" + m.addr + ")")
	}
	b.WriteString("\n\n")

	switch m.st {
	case stateLogin:
		b.WriteString("Login\n")
		b.WriteString(m.pass.View())
		b.WriteString("\n\n")
		b.WriteString("Enter to login. q to quit.\n")
	case stateUsers:
		b.WriteString(m.userLst.View())
		b.WriteString("\n")
		b.WriteString("Keys: n=new d=delete k=ssh-keys g=repos r=refresh q=quit\n")
	case stateNewUser:
		b.WriteString("Create user\n\n")
		b.WriteString(m.newUsername.View() + "\n")
		b.WriteString(m.newPassword.View() + "\n")
		b.WriteString(m.newEmail.View() + "\n\n")
		b.WriteString("Enter=save  esc=back\n")
	case stateKeys:
		u, ok := m.selectedUser()
		if ok {
			b.WriteString("SSH keys for: " + u.Username + "\n\n")
		}
		b.WriteString(m.keyLst.View())
		b.WriteString("\nAdd key\n")
		b.WriteString(m.addKey.View() + "\n")
		b.WriteString(m.addName.View() + "\n")
		b.WriteString("\nEnter=add key  d=delete selected key  esc=back\n")
	case stateRepos:
		u, ok := m.selectedUser()
		if ok {
			b.WriteString("Repositories for: " + u.Username + "\n\n")
		}
		b.WriteString(m.repoLst.View())
		b.WriteString("\nr=refresh  esc=back\n")
	}

	if m.err != "" {
		b.WriteString("\nError: " + m.err + "\n")
	}

	return b.String()
}

type userItem adminapi.User

func (u userItem) Title() string { return u.Username }
func (u userItem) Description() string {
	created := time.Unix(u.CreatedAt, 0).Format("2006-01-02")
	if u.Email == "" {
		return "created " + created
	}
	return u.Email + ", created " + created
}
func (u userItem) FilterValue() string { return u.Username }

type keyItem adminapi.SSHKey

func (k keyItem) Title() string       { return k.Fingerprint }
func (k keyItem) Description() string { return k.Name }
func (k keyItem) FilterValue() string { return k.Fingerprint }

type repoItem struct{ adminapi.Repo }

func (r repoItem) Title() string {
	if r.Private {
		return r.Name + " (private)"
	}
	return r.Name
}
func (r repoItem) Description() string { return r.Repo.Description }
func (r repoItem) FilterValue() string { return r.Name }

// selectedUser returns the currently highlighted user list entry.
func (m *Model) selectedUser() (adminapi.User, bool) {
	if m.userLst.SelectedItem() == nil {
		return adminapi.User{}, false
	}
	if it, ok := m.userLst.SelectedItem().(userItem); ok {
		return adminapi.User(it), true
	}
	return adminapi.User{}, false
}

func loginCmd(c *adminapi.Client, password string) tea.Cmd {
	return func() tea.Msg {
		if err := c.LoginAdmin(password); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

func refreshUsersCmd(c *adminapi.Client) tea.Cmd {
	return func() tea.Msg {
		users, err := c.ListUsers()
		if err != nil {
			return errMsg(err.Error())
		}
		return usersMsg(users)
	}
}

func deleteUserCmd(c *adminapi.Client, id int64) tea.Cmd {
	return func() tea.Msg {
		if err := c.DeleteUser(id); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

func refreshKeysCmd(c *adminapi.Client, userID int64) tea.Cmd {
	return func() tea.Msg {
		keys, err := c.ListKeys(userID)
		if err != nil {
			return errMsg(err.Error())
		}
		return keysMsg(keys)
	}
}

func refreshReposCmd(c *adminapi.Client, userID int64) tea.Cmd {
	return func() tea.Msg {
		repos, err := c.ListRepos(userID)
		if err != nil {
			return errMsg(err.Error())
		}
		return reposMsg(repos)
	}
}

func addKeyCmd(c *adminapi.Client, userID int64, name, pub string) tea.Cmd {
	return func() tea.Msg {
		_, _, err := c.AddKey(userID, name, pub)
		if err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

func deleteKeyCmd(c *adminapi.Client, userID, keyID int64) tea.Cmd {
	return func() tea.Msg {
		if err := c.DeleteKey(userID, keyID); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

// updateNewUser handles input while creating a new user.
func (m Model) updateNewUser(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.st = stateUsers
			return m, refreshUsersCmd(m.client)
		case "enter":
			createCmd := func() tea.Cmd {
				return func() tea.Msg {
					_, err := m.client.CreateUser(
						m.newUsername.Value(),
						m.newPassword.Value(),
						m.newEmail.Value(),
					)
					if err != nil {
						return errMsg(err.Error())
					}
					return okMsg{}
				}
			}()
			m.st = stateUsers
			return m, tea.Batch(createCmd, refreshUsersCmd(m.client))
		}
	}

	// Focus order: username -> password -> email
	var cmd tea.Cmd
	if m.newUsername.Focused() {
		m.newUsername, cmd = m.newUsername.Update(msg)
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "tab" {
			m.newUsername.Blur()
			m.newPassword.Focus()
		}
		return m, cmd
	}
	if m.newPassword.Focused() {
		m.newPassword, cmd = m.newPassword.Update(msg)
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "tab" {
			m.newPassword.Blur()
			m.newEmail.Focus()
		}
		return m, cmd
	}
	m.newEmail, cmd = m.newEmail.Update(msg)
	return m, cmd
}

// updateKeys handles input on the SSH keys screen.
func (m Model) updateKeys(msg tea.Msg) (tea.Model, tea.Cmd) {
	u, ok := m.selectedUser()
	if !ok {
		m.st = stateUsers
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.st = stateUsers
			return m, nil
		case "enter":
			pub := strings.TrimSpace(m.addKey.Value())
			name := strings.TrimSpace(m.addName.Value())
			m.addKey.SetValue("")
			m.addName.SetValue("")
			return m, tea.Batch(addKeyCmd(m.client, u.ID, name, pub), refreshKeysCmd(m.client, u.ID))
		case "d":
			if m.keyLst.SelectedItem() == nil {
				return m, nil
			}
			if it, ok := m.keyLst.SelectedItem().(keyItem); ok {
				key := adminapi.SSHKey(it)
				return m, tea.Batch(deleteKeyCmd(m.client, u.ID, key.ID), refreshKeysCmd(m.client, u.ID))
			}
		}
	}

	var cmd tea.Cmd
	if m.addKey.Focused() {
		m.addKey, cmd = m.addKey.Update(msg)
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "tab" {
			m.addKey.Blur()
			m.addName.Focus()
		}
		return m, cmd
	}
	if m.addName.Focused() {
		m.addName, cmd = m.addName.Update(msg)
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "tab" {
			m.addName.Blur()
		}
		return m, cmd
	}
	m.keyLst, cmd = m.keyLst.Update(msg)
	return m, cmd
}

// updateRepos handles input on the repository listing screen.
func (m Model) updateRepos(msg tea.Msg) (tea.Model, tea.Cmd) {
	u, ok := m.selectedUser()
	if !ok {
		m.st = stateUsers
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.st = stateUsers
			return m, nil
		case "r":
			return m, refreshReposCmd(m.client, u.ID)
		}
	}
	var cmd tea.Cmd
	m.repoLst, cmd = m.repoLst.Update(msg)
	return m, cmd
}

func redactAddr(addr string) string {
	u, err := url.Parse(addr)
	if err != nil {
		return ""
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	return u.Scheme + "://" + u.Host
}
